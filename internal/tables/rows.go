// Package tables loads the GDAL GRIB2 Code Table 4.2 CSV files into a
// [grib.ParameterDatabase].
//
// GDAL ships one CSV per (discipline, category) of the WMO master tables,
// named grib2_table_4_2_<discipline>_<category>.csv, plus one CSV per
// originating centre with that centre's local parameters, named
// grib2_table_4_2_local_<Centre>.csv. Local tables carry their own prod and
// cat columns; the centre and subcentre they belong to come from
// grib2_table_4_2_local_index.csv.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is one record of a table 4.2 CSV. Prod and Cat are only present in
// local tables.
type Row struct {
	Prod      *int
	Cat       *int
	Subcat    int
	ShortName string
	Name      string
	Unit      string
}

// Keep reports whether a row describes a real parameter. The first rows of
// each GDAL CSV hold comments with negative subcat values, and many tables
// list reserved or missing placeholders.
func Keep(r Row) bool {
	if r.Subcat < 0 {
		return false
	}
	name := strings.ToLower(r.Name)
	return !strings.Contains(name, "reserved") && !strings.Contains(name, "missing")
}

// ReadRows parses a table 4.2 CSV by header name and returns only the rows
// that pass Keep.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"subcat", "short_name", "name", "unit"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if Keep(row) {
			rows = append(rows, row)
		}
	}
}

func parseRow(rec []string, cols map[string]int) (Row, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	subcat, err := strconv.Atoi(field("subcat"))
	if err != nil {
		return Row{}, fmt.Errorf("parse subcat: %w", err)
	}
	row := Row{
		Subcat:    subcat,
		ShortName: field("short_name"),
		Name:      field("name"),
		Unit:      field("unit"),
	}
	if row.Prod, err = optionalInt(field("prod")); err != nil {
		return Row{}, fmt.Errorf("parse prod: %w", err)
	}
	if row.Cat, err = optionalInt(field("cat")); err != nil {
		return Row{}, fmt.Errorf("parse cat: %w", err)
	}
	return row, nil
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	return cols
}
