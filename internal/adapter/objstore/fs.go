package objstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/spf13/afero"
)

var errStopWalk = errors.New("stop walk")

// FSStore serves a directory tree as if it were a bucket. Keys are paths
// relative to the root; nothing outside the root is reachable.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore serves the tree under root in fsys.
func NewFSStore(fsys afero.Fs, root string) *FSStore {
	return &FSStore{fs: afero.NewBasePathFs(fsys, filepath.Clean(root))}
}

// List walks the deepest directory that contains every key under prefix and
// yields matching files in lexical order.
func (s *FSStore) List(ctx context.Context, prefix string) iter.Seq2[domain.ObjectMeta, error] {
	return func(yield func(domain.ObjectMeta, error) bool) {
		dir, _ := splitPrefix(prefix)
		start := s.abs(dir)
		if _, err := s.fs.Stat(start); errors.Is(err, fs.ErrNotExist) {
			return
		}

		err := afero.Walk(s.fs, start, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			key := s.key(p)
			if !strings.HasPrefix(key, prefix) {
				return nil
			}
			if !yield(domain.ObjectMeta{Path: key, Size: info.Size()}, nil) {
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(domain.ObjectMeta{}, fmt.Errorf("walk %s: %w", start, err))
		}
	}
}

// ListDir reads the directory that holds prefix and keeps the entries whose
// names start with the remainder of prefix.
func (s *FSStore) ListDir(_ context.Context, prefix string) (domain.Listing, error) {
	dir, frag := splitPrefix(prefix)
	infos, err := afero.ReadDir(s.fs, s.abs(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Listing{}, nil
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("read dir %s: %w", s.abs(dir), err)
	}

	var l domain.Listing
	for _, info := range infos {
		name := info.Name()
		if !strings.HasPrefix(name, frag) {
			continue
		}
		if info.IsDir() {
			l.Prefixes = append(l.Prefixes, dir+name+"/")
			continue
		}
		l.Objects = append(l.Objects, domain.ObjectMeta{Path: dir + name, Size: info.Size()})
	}
	return l, nil
}

// Fetch reads a whole file.
func (s *FSStore) Fetch(_ context.Context, key string) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, s.abs(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (s *FSStore) abs(key string) string {
	return filepath.Join(string(filepath.Separator), filepath.FromSlash(key))
}

func (s *FSStore) key(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), "/")
}

// splitPrefix splits a key prefix into its directory part, ending in "/" or
// empty, and the partial name after it.
func splitPrefix(prefix string) (dir, frag string) {
	i := strings.LastIndex(prefix, "/")
	if i < 0 {
		return "", prefix
	}
	return prefix[:i+1], prefix[i+1:]
}
