// Package objstore lists and reads the objects of a GRIB archive, either in
// an S3 bucket or in a local directory mirror of one.
//
// Keys always use "/" separators. Listings follow S3 semantics: List returns
// every key that starts with the prefix, ListDir splits the keys under the
// prefix at the next "/" into common prefixes and objects.
package objstore

import (
	"context"
	"errors"
	"iter"

	"github.com/couchcryptid/grib-catalog/internal/domain"
)

// ErrNotFound is returned by Fetch when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the full set of object store operations.
type Store interface {
	List(ctx context.Context, prefix string) iter.Seq2[domain.ObjectMeta, error]
	ListDir(ctx context.Context, prefix string) (domain.Listing, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
}
