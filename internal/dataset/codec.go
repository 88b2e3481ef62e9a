package dataset

import (
	"time"

	"github.com/couchcryptid/grib-catalog/internal/domain"
)

// Codec translates between coordinates and the paths of one dataset.
//
// Encode is total over valid coordinates. Decode never panics; every failure
// is a *DecodeError naming the path and the check it failed.
type Codec interface {
	Encode(c domain.Coordinate) string
	Decode(path string) (domain.PartialCoordinate, error)
}

// Schema is a versioned dataset: it resolves the version in effect at a
// reference datetime and exposes that version's codec.
type Schema interface {
	Resolve(t time.Time) (VersionSpan, error)
	Codec(versionID string) (Codec, error)
}
