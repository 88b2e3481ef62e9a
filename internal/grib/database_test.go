package grib_test

import (
	"errors"
	"testing"

	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func masterID(discipline, category, number uint8) grib.NumericID {
	return grib.NewNumericIDBuilder(discipline, category, number).
		WithMasterTableVersion(grib.MasterTableVersion).
		Build()
}

func localID(discipline, category, number uint8, center uint16, subcenter uint8) grib.NumericID {
	return grib.NewNumericIDBuilder(discipline, category, number).
		WithMasterTableVersion(grib.MasterTableVersion).
		WithOriginatingCenter(center).
		WithSubcenter(subcenter).
		Build()
}

var tmp = grib.Parameter{Abbrev: "TMP", Name: "Temperature", Unit: "K"}

func TestDatabase_InsertAndLookup(t *testing.T) {
	b := grib.NewDatabaseBuilder()
	id := masterID(0, 0, 0)
	require.NoError(t, b.Insert(id, tmp))
	db := b.Build()

	got, ok := db.LookupByNumericID(id)
	require.True(t, ok)
	assert.Equal(t, tmp, got)

	entries := db.LookupByAbbrev("TMP")
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, 1, db.Len())
}

func TestDatabase_LookupMissing(t *testing.T) {
	db := grib.NewDatabaseBuilder().Build()

	_, ok := db.LookupByNumericID(masterID(0, 0, 0))
	assert.False(t, ok)
	assert.Empty(t, db.LookupByAbbrev("TMP"))
}

func TestDatabase_DuplicateNumericID(t *testing.T) {
	b := grib.NewDatabaseBuilder()
	id := masterID(0, 0, 0)
	require.NoError(t, b.Insert(id, tmp))

	err := b.Insert(id, grib.Parameter{Abbrev: "OTHER", Name: "Other", Unit: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, grib.ErrDuplicateNumericID)

	var insErr *grib.InsertionError
	require.True(t, errors.As(err, &insErr))
	assert.Equal(t, grib.DuplicateNumericID, insErr.Kind)
	assert.Equal(t, tmp, insErr.Existing)

	db := b.Build()
	assert.Equal(t, 1, db.Len())
	assert.Empty(t, db.LookupByAbbrev("OTHER"), "rejected insert must not leave an orphaned abbreviation")
}

func TestDatabase_SharedAbbreviation(t *testing.T) {
	b := grib.NewDatabaseBuilder()
	ncep := localID(0, 19, 217, 7, 255)
	master := masterID(0, 19, 41)
	require.NoError(t, b.Insert(ncep, grib.Parameter{Abbrev: "SIPD", Name: "Supercooled large droplet icing", Unit: "Numeric"}))
	require.NoError(t, b.Insert(master, grib.Parameter{Abbrev: "SIPD", Name: "Icing", Unit: "Numeric"}))
	db := b.Build()

	got := db.LookupByAbbrev("SIPD")
	want := []grib.NumericID{master, ncep}
	if master > ncep {
		want = []grib.NumericID{ncep, master}
	}
	ids := make([]grib.NumericID, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("LookupByAbbrev mismatch (-want +got):\n%s", diff)
	}

	desc := db.DescribeDuplicateAbbreviations()
	assert.Contains(t, desc, "SIPD is used by 2 parameters")
	assert.Contains(t, desc, "center=7")
	assert.Contains(t, desc, "center=65535")
	assert.Equal(t, 1, db.DuplicateAbbreviationCount())
}

func TestDatabase_EmptyAbbrevNotIndexed(t *testing.T) {
	b := grib.NewDatabaseBuilder()
	require.NoError(t, b.Insert(masterID(0, 0, 1), grib.Parameter{Name: "Virtual temperature", Unit: "K"}))
	require.NoError(t, b.Insert(masterID(0, 0, 2), grib.Parameter{Name: "Potential temperature", Unit: "K"}))
	db := b.Build()

	assert.Equal(t, 2, db.Len())
	assert.Empty(t, db.LookupByAbbrev(""))
	assert.Empty(t, db.DescribeDuplicateAbbreviations())
}

func TestDatabase_Sealed(t *testing.T) {
	b := grib.NewDatabaseBuilder()
	b.Build()
	assert.ErrorIs(t, b.Insert(masterID(0, 0, 0), tmp), grib.ErrSealed)
}

func TestDatabase_CategoryAndPrefix(t *testing.T) {
	b := grib.NewDatabaseBuilder()
	require.NoError(t, b.Insert(masterID(0, 0, 0), tmp))
	require.NoError(t, b.Insert(masterID(0, 0, 4), grib.Parameter{Abbrev: "TMAX", Name: "Maximum temperature", Unit: "K"}))
	require.NoError(t, b.Insert(masterID(0, 1, 1), grib.Parameter{Abbrev: "RH", Name: "Relative humidity", Unit: "%"}))
	require.NoError(t, b.Insert(masterID(0, 2, 2), grib.Parameter{Abbrev: "UGRD", Name: "u-component of wind", Unit: "m/s"}))
	db := b.Build()

	cat := db.Category(0, 0)
	require.Len(t, cat, 2)
	assert.Equal(t, "TMP", cat[0].Parameter.Abbrev)
	assert.Equal(t, "TMAX", cat[1].Parameter.Abbrev)

	assert.Equal(t, []string{"TMAX", "TMP"}, db.AbbrevsWithPrefix("TM"))
	assert.Empty(t, db.AbbrevsWithPrefix("Z"))

	var seen []string
	db.Ascend(func(e grib.Entry) bool {
		seen = append(seen, e.Parameter.Abbrev)
		return true
	})
	assert.Equal(t, []string{"TMP", "TMAX", "RH", "UGRD"}, seen)
}
