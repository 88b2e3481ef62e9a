package grib

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/armon/go-radix"
	"github.com/google/btree"
)

const btreeDegree = 32

func entryLess(a, b Entry) bool { return a.ID < b.ID }

// DatabaseBuilder is the only way to add parameters. It is not safe for
// concurrent use.
type DatabaseBuilder struct {
	db     *ParameterDatabase
	sealed bool
}

// NewDatabaseBuilder returns an empty builder.
func NewDatabaseBuilder() *DatabaseBuilder {
	return &DatabaseBuilder{db: &ParameterDatabase{
		byID:     btree.NewG(btreeDegree, entryLess),
		byAbbrev: radix.New(),
	}}
}

// Insert adds p under id and indexes its abbreviation. Both collision checks
// run before anything is written, so a rejected insert leaves the database
// unchanged.
func (b *DatabaseBuilder) Insert(id NumericID, p Parameter) error {
	if b.sealed {
		return ErrSealed
	}
	db := b.db

	if existing, ok := db.byID.Get(Entry{ID: id}); ok {
		return &InsertionError{Kind: DuplicateNumericID, ID: id, Parameter: p, Existing: existing.Parameter}
	}

	var ids *roaring64.Bitmap
	if p.Abbrev != "" {
		if v, ok := db.byAbbrev.Get(p.Abbrev); ok {
			ids = v.(*roaring64.Bitmap)
			if ids.Contains(id.Uint64()) {
				return &InsertionError{Kind: DuplicateAbbrevMapping, ID: id, Parameter: p}
			}
		} else {
			ids = roaring64.New()
			db.byAbbrev.Insert(p.Abbrev, ids)
		}
	}

	db.byID.ReplaceOrInsert(Entry{ID: id, Parameter: p})
	if ids != nil {
		ids.Add(id.Uint64())
	}
	return nil
}

// Len reports how many parameters have been inserted so far.
func (b *DatabaseBuilder) Len() int { return b.db.Len() }

// Build seals the builder and returns the read-only database.
func (b *DatabaseBuilder) Build() *ParameterDatabase {
	b.sealed = true
	return b.db
}

// ParameterDatabase maps NumericIDs and abbreviations to parameter metadata.
// It is immutable and safe for concurrent readers.
type ParameterDatabase struct {
	byID     *btree.BTreeG[Entry]
	byAbbrev *radix.Tree // abbrev -> *roaring64.Bitmap
}

// Len returns the number of parameters.
func (db *ParameterDatabase) Len() int { return db.byID.Len() }

// LookupByNumericID returns the parameter stored under id.
func (db *ParameterDatabase) LookupByNumericID(id NumericID) (Parameter, bool) {
	e, ok := db.byID.Get(Entry{ID: id})
	return e.Parameter, ok
}

// LookupByAbbrev returns every parameter sharing the abbreviation, in
// ascending NumericID order. The empty abbreviation never matches.
func (db *ParameterDatabase) LookupByAbbrev(abbrev string) []Entry {
	if abbrev == "" {
		return nil
	}
	v, ok := db.byAbbrev.Get(abbrev)
	if !ok {
		return nil
	}
	return db.entries(v.(*roaring64.Bitmap))
}

// AbbrevsWithPrefix returns the indexed abbreviations starting with prefix,
// sorted.
func (db *ParameterDatabase) AbbrevsWithPrefix(prefix string) []string {
	var out []string
	db.byAbbrev.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		out = append(out, s)
		return false
	})
	return out
}

// Category returns every parameter in the discipline and category, in
// NumericID order.
func (db *ParameterDatabase) Category(discipline, category uint8) []Entry {
	lo, hi := CategoryRange(discipline, category)
	var out []Entry
	db.byID.AscendGreaterOrEqual(Entry{ID: lo}, func(e Entry) bool {
		if e.ID > hi {
			return false
		}
		out = append(out, e)
		return true
	})
	return out
}

// Ascend calls fn for each entry in NumericID order until fn returns false.
func (db *ParameterDatabase) Ascend(fn func(Entry) bool) {
	db.byID.Ascend(fn)
}

// DescribeDuplicateAbbreviations lists every abbreviation that maps to more
// than one identifier, with the fields that tell the identifiers apart.
func (db *ParameterDatabase) DescribeDuplicateAbbreviations() string {
	var sb strings.Builder
	db.byAbbrev.Walk(func(abbrev string, v interface{}) bool {
		ids := v.(*roaring64.Bitmap)
		if ids.GetCardinality() < 2 {
			return false
		}
		fmt.Fprintf(&sb, "%s is used by %d parameters:\n", abbrev, ids.GetCardinality())
		for _, e := range db.entries(ids) {
			fmt.Fprintf(&sb,
				"  discipline=%d category=%d number=%d master_table=%d center=%d subcenter=%d local_table=%d name=%q unit=%q\n",
				e.ID.ProductDiscipline(), e.ID.ParameterCategory(), e.ID.ParameterNumber(),
				e.ID.MasterTableVersion(), e.ID.OriginatingCenter(), e.ID.Subcenter(), e.ID.LocalTableVersion(),
				e.Parameter.Name, e.Parameter.Unit,
			)
		}
		return false
	})
	return sb.String()
}

// DuplicateAbbreviationCount returns how many abbreviations map to more than
// one identifier.
func (db *ParameterDatabase) DuplicateAbbreviationCount() int {
	n := 0
	db.byAbbrev.Walk(func(_ string, v interface{}) bool {
		if v.(*roaring64.Bitmap).GetCardinality() > 1 {
			n++
		}
		return false
	})
	return n
}

func (db *ParameterDatabase) entries(ids *roaring64.Bitmap) []Entry {
	out := make([]Entry, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		id := NumericID(it.Next())
		if e, ok := db.byID.Get(Entry{ID: id}); ok {
			out = append(out, e)
		}
	}
	return out
}
