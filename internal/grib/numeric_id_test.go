package grib_test

import (
	"fmt"
	"testing"

	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/stretchr/testify/assert"
)

func TestNumericIDBuilder_Defaults(t *testing.T) {
	id := grib.NewNumericIDBuilder(0, 2, 3).Build()

	assert.Equal(t, uint8(0), id.ProductDiscipline())
	assert.Equal(t, uint8(2), id.ParameterCategory())
	assert.Equal(t, uint8(3), id.ParameterNumber())
	assert.Equal(t, grib.MissingU8, id.MasterTableVersion())
	assert.Equal(t, grib.MissingU16, id.OriginatingCenter())
	assert.Equal(t, grib.MissingU8, id.Subcenter())
	assert.Equal(t, grib.MissingU8, id.LocalTableVersion())
}

func TestNumericIDBuilder_RoundTrip(t *testing.T) {
	tests := []struct {
		name                      string
		discipline, category, num uint8
		master, subcenter, local  uint8
		center                    uint16
	}{
		{name: "zeros"},
		{name: "all ones", discipline: 255, category: 255, num: 255, master: 255, subcenter: 255, local: 255, center: 65535},
		{name: "ncep local", discipline: 0, category: 1, num: 192, master: 30, center: 7, subcenter: 255, local: 1},
		{name: "split centre halves", discipline: 10, category: 3, num: 4, master: 30, center: 0x1234, subcenter: 2, local: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := grib.NewNumericIDBuilder(tt.discipline, tt.category, tt.num).
				WithMasterTableVersion(tt.master).
				WithOriginatingCenter(tt.center).
				WithSubcenter(tt.subcenter).
				WithLocalTableVersion(tt.local).
				Build()

			assert.Equal(t, tt.discipline, id.ProductDiscipline())
			assert.Equal(t, tt.category, id.ParameterCategory())
			assert.Equal(t, tt.num, id.ParameterNumber())
			assert.Equal(t, tt.master, id.MasterTableVersion())
			assert.Equal(t, tt.center, id.OriginatingCenter())
			assert.Equal(t, tt.subcenter, id.Subcenter())
			assert.Equal(t, tt.local, id.LocalTableVersion())
		})
	}
}

func TestNumericID_DistinctAtFieldBoundaries(t *testing.T) {
	u8s := []uint8{0x00, 0x01, 0xFE, 0xFF}
	u16s := []uint16{0x0000, 0x0001, 0x00FF, 0xFF00, 0xFFFE, 0xFFFF}

	seen := make(map[grib.NumericID]string)
	for _, d := range u8s {
		for _, c := range u8s {
			for _, n := range u8s {
				for _, m := range u8s {
					for _, oc := range u16s {
						for _, sc := range u8s {
							for _, l := range u8s {
								id := grib.NewNumericIDBuilder(d, c, n).
									WithMasterTableVersion(m).
									WithOriginatingCenter(oc).
									WithSubcenter(sc).
									WithLocalTableVersion(l).
									Build()
								fields := fmt.Sprint(d, c, n, m, oc, sc, l)
								if other, ok := seen[id]; ok {
									t.Fatalf("%v and %v both pack to %#016x", other, fields, id.Uint64())
								}
								seen[id] = fields
							}
						}
					}
				}
			}
		}
	}
	assert.Len(t, seen, 4*4*4*4*6*4*4)
}

func TestNumericID_ByteLayout(t *testing.T) {
	id := grib.NewNumericIDBuilder(0x01, 0x02, 0x03).
		WithMasterTableVersion(0x04).
		WithOriginatingCenter(0x0506).
		WithSubcenter(0x07).
		WithLocalTableVersion(0x08).
		Build()

	assert.Equal(t, uint64(0x0102030405060708), id.Uint64())
}

func TestNumericID_OrderingGroupsByCategory(t *testing.T) {
	a := grib.NewNumericIDBuilder(0, 1, 255).Build()
	b := grib.NewNumericIDBuilder(0, 2, 0).WithMasterTableVersion(0).WithOriginatingCenter(0).WithSubcenter(0).WithLocalTableVersion(0).Build()
	c := grib.NewNumericIDBuilder(1, 0, 0).Build()

	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestCategoryRange(t *testing.T) {
	lo, hi := grib.CategoryRange(0, 2)
	in := grib.NewNumericIDBuilder(0, 2, 17).WithMasterTableVersion(30).Build()
	below := grib.NewNumericIDBuilder(0, 1, 255).Build()
	above := grib.NewNumericIDBuilder(0, 3, 0).WithMasterTableVersion(0).WithOriginatingCenter(0).WithSubcenter(0).WithLocalTableVersion(0).Build()

	assert.True(t, lo <= in && in <= hi)
	assert.Greater(t, lo, below)
	assert.Less(t, hi, above)
}

func TestNumericID_String(t *testing.T) {
	id := grib.NewNumericIDBuilder(0, 0, 0).WithMasterTableVersion(grib.MasterTableVersion).Build()
	assert.Contains(t, id.String(), "master_table=30")
	assert.Contains(t, id.String(), "center=65535")
}
