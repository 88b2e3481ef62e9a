package main

import (
	"strings"
	"testing"

	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/couchcryptid/grib-catalog/internal/tables"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *grib.ParameterDatabase {
	t.Helper()
	b := grib.NewDatabaseBuilder()
	master := func(d, c, n uint8) grib.NumericID {
		return grib.NewNumericIDBuilder(d, c, n).WithMasterTableVersion(grib.MasterTableVersion).Build()
	}
	local := grib.NewNumericIDBuilder(0, 1, 192).
		WithMasterTableVersion(grib.MasterTableVersion).
		WithOriginatingCenter(7).
		Build()
	require.NoError(t, b.Insert(master(0, 0, 0), grib.Parameter{Abbrev: "TMP", Name: "Temperature", Unit: "K"}))
	require.NoError(t, b.Insert(master(0, 1, 8), grib.Parameter{Abbrev: "APCP", Name: "Total precipitation", Unit: "kg m-2"}))
	require.NoError(t, b.Insert(local, grib.Parameter{Abbrev: "APCP", Name: "Precipitation (NCEP)", Unit: "kg m-2"}))
	return b.Build()
}

func TestReport(t *testing.T) {
	var out strings.Builder
	dups := report(&out, testDB(t), []string{"TMP", "NOPE"}, "AP")

	assert.Equal(t, 1, dups)
	s := out.String()
	assert.Contains(t, s, "parameters: 3\n")
	assert.Contains(t, s, "shared abbreviations: 1\n")
	assert.Contains(t, s, "APCP is used by 2 parameters:")
	assert.Contains(t, s, `TMP: `)
	assert.Contains(t, s, `name="Temperature"`)
	assert.Contains(t, s, "NOPE: not found\n")
	assert.Contains(t, s, `abbreviations with prefix "AP": APCP`)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"TMP", "APCP"}, splitList(" TMP, ,APCP "))
	assert.Empty(t, splitList(""))
}

func TestTablesDirUsage_MatchesLoad(t *testing.T) {
	assert.NotContains(t, tablesDirUsage, "grib2_table_versions.csv")
	assert.Contains(t, tablesDirUsage, tables.LocalIndexFilename)

	// The files the usage names are enough; no versions table is read.
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/gdal/grib2_table_4_2_0_0.csv",
		[]byte("subcat,short_name,name,unit,unit_conv\n0,TMP,Temperature,K,UC_K2F\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/gdal/"+tables.LocalIndexFilename,
		[]byte("center_code,subcenter_code,filename\n"), 0o644))

	db, err := tables.Load(fsys, "/gdal")
	require.NoError(t, err)

	var out strings.Builder
	assert.Zero(t, report(&out, db, []string{"TMP"}, ""))
	assert.Contains(t, out.String(), "parameters: 1\n")
}
