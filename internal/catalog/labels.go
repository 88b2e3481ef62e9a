package catalog

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/domain"
)

// labelsBuilder accumulates distinct coordinate labels. It has a single
// owner and is not safe for concurrent use.
type labelsBuilder struct {
	refs    map[int64]struct{} // unix seconds
	members map[domain.EnsembleMember]struct{}
	steps   map[time.Duration]struct{}
	params  map[string]struct{}
	levels  map[string]struct{}
}

func newLabelsBuilder() *labelsBuilder {
	return &labelsBuilder{
		refs:    make(map[int64]struct{}),
		members: make(map[domain.EnsembleMember]struct{}),
		steps:   make(map[time.Duration]struct{}),
		params:  make(map[string]struct{}),
		levels:  make(map[string]struct{}),
	}
}

func (b *labelsBuilder) addReferenceDatetime(t time.Time) bool {
	k := t.Unix()
	if _, ok := b.refs[k]; ok {
		return false
	}
	b.refs[k] = struct{}{}
	return true
}

func (b *labelsBuilder) addPartial(pc domain.PartialCoordinate) {
	b.addReferenceDatetime(pc.ReferenceDatetime)
	if pc.EnsembleMember != nil {
		b.members[*pc.EnsembleMember] = struct{}{}
	}
	if pc.ForecastStep != nil {
		b.steps[*pc.ForecastStep] = struct{}{}
	}
}

func (b *labelsBuilder) addRecord(rec domain.IndexRecord) {
	if rec.Parameter != "" {
		b.params[rec.Parameter] = struct{}{}
	}
	if rec.VerticalLevel != "" {
		b.levels[rec.VerticalLevel] = struct{}{}
	}
	b.steps[rec.ForecastStep] = struct{}{}
	if rec.EnsembleMember != nil {
		b.members[*rec.EnsembleMember] = struct{}{}
	}
}

// build sorts each axis once.
func (b *labelsBuilder) build() domain.CoordLabels {
	refs := make([]time.Time, 0, len(b.refs))
	for _, k := range slices.Sorted(maps.Keys(b.refs)) {
		refs = append(refs, time.Unix(k, 0).UTC())
	}
	members := slices.SortedFunc(maps.Keys(b.members), domain.EnsembleMember.Compare)

	return domain.CoordLabels{
		ReferenceDatetimes: refs,
		EnsembleMembers:    members,
		ForecastSteps:      sortedKeys(b.steps),
		Parameters:         sortedKeys(b.params),
		VerticalLevels:     sortedKeys(b.levels),
	}
}

func sortedKeys[K cmp.Ordered](m map[K]struct{}) []K {
	return slices.Sorted(maps.Keys(m))
}
