package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/grib-catalog/internal/grib"
)

// LocalIndexFilename is the GDAL file mapping local tables to centres.
const LocalIndexFilename = "grib2_table_4_2_local_index.csv"

// ndfdFilename is listed twice in GDAL's local index. The repeat for centre 8
// with a missing subcentre is skipped.
const ndfdFilename = "grib2_table_4_2_local_NDFD.csv"

// Origin is the (centre, subcentre) pair a local table belongs to.
type Origin struct {
	Center    uint16
	Subcenter uint8
}

// LocalIndex maps a local table filename to its origin.
type LocalIndex map[string]Origin

// ReadLocalIndex parses grib2_table_4_2_local_index.csv.
func ReadLocalIndex(r io.Reader) (LocalIndex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"center_code", "subcenter_code", "filename"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	index := make(LocalIndex)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return index, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			if i := cols[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		center, err := strconv.ParseUint(field("center_code"), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse center_code: %w", line, err)
		}
		subcenter, err := parseSubcenter(field("subcenter_code"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		filename := field("filename")
		origin := Origin{Center: uint16(center), Subcenter: subcenter}

		if old, dup := index[filename]; dup {
			if filename == ndfdFilename && origin == (Origin{Center: 8, Subcenter: grib.MissingU8}) {
				continue
			}
			return nil, fmt.Errorf("line %d: duplicate filename %s (previous center=%d subcenter=%d)",
				line, filename, old.Center, old.Subcenter)
		}
		index[filename] = origin
	}
}

// parseSubcenter maps an empty value and the 16-bit missing value onto the
// 8-bit missing sentinel.
func parseSubcenter(s string) (uint8, error) {
	if s == "" {
		return grib.MissingU8, nil
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse subcenter_code: %w", err)
	}
	switch {
	case v == math.MaxUint16:
		return grib.MissingU8, nil
	case v > math.MaxUint8:
		return 0, fmt.Errorf("subcenter_code %d does not fit in a byte", v)
	}
	return uint8(v), nil
}
