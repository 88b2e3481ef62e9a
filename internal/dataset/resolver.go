// Package dataset maps between forecast coordinates and the object paths of
// an archive whose directory layout changed over time.
//
// Each layout era is a schema version, identified by the reference datetime
// at which it took effect. A [Resolver] picks the version for a datetime and
// a [Codec] translates between coordinates and paths for one dataset.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// VersionSpan is a schema version and the reference datetime it starts at.
// A span ends where the next one starts; the last span is unbounded.
type VersionSpan struct {
	ID    string
	Start time.Time
}

// Resolver selects the schema version in effect at a reference datetime.
// It is immutable and safe for concurrent use.
type Resolver struct {
	spans []VersionSpan
}

// NewResolver validates that spans are non-empty, uniquely named and in
// strictly increasing start order.
func NewResolver(spans ...VersionSpan) (*Resolver, error) {
	if len(spans) == 0 {
		return nil, errors.New("resolver needs at least one version")
	}
	seen := make(map[string]bool, len(spans))
	for i, s := range spans {
		if s.ID == "" {
			return nil, fmt.Errorf("version %d has no id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate version id %q", s.ID)
		}
		seen[s.ID] = true
		if i > 0 && !s.Start.After(spans[i-1].Start) {
			return nil, fmt.Errorf("version %q starts at %s, not after %q (%s)",
				s.ID, s.Start.Format(time.RFC3339), spans[i-1].ID, spans[i-1].Start.Format(time.RFC3339))
		}
	}
	return &Resolver{spans: append([]VersionSpan(nil), spans...)}, nil
}

// Resolve returns the version with the greatest start not after t.
func (r *Resolver) Resolve(t time.Time) (VersionSpan, error) {
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].Start.After(t) })
	if i == 0 {
		return VersionSpan{}, &BeforeDatasetStartError{Datetime: t, Start: r.spans[0].Start}
	}
	return r.spans[i-1], nil
}

// Spans returns a copy of the configured versions in start order.
func (r *Resolver) Spans() []VersionSpan {
	return append([]VersionSpan(nil), r.spans...)
}

// End returns the start of the version after id, or the zero time if id is
// the last version.
func (r *Resolver) End(id string) (time.Time, bool) {
	for i, s := range r.spans {
		if s.ID != id {
			continue
		}
		if i+1 < len(r.spans) {
			return r.spans[i+1].Start, true
		}
		return time.Time{}, true
	}
	return time.Time{}, false
}
