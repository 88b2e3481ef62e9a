package grib

import "fmt"

// MasterTableVersion is the WMO master table version shipped with the GDAL
// GRIB2 tables (see grib2_table_versions.csv).
const MasterTableVersion uint8 = 30

// Sentinels for fields that do not apply to a parameter.
const (
	MissingU8  uint8  = 0xFF
	MissingU16 uint16 = 0xFFFF
)

const (
	shiftDiscipline    = 56
	shiftCategory      = 48
	shiftNumber        = 40
	shiftMasterVersion = 32
	shiftCenterHigh    = 24
	shiftCenterLow     = 16
	shiftSubcenter     = 8
	shiftLocalVersion  = 0
)

// NumericID is a packed GRIB2 parameter identifier. Construct it with
// [NewNumericIDBuilder].
type NumericID uint64

// ProductDiscipline returns byte 7 (GRIB2 Code Table 0.0).
func (id NumericID) ProductDiscipline() uint8 { return id.byteAt(shiftDiscipline) }

// ParameterCategory returns byte 6 (GRIB2 Code Table 4.1).
func (id NumericID) ParameterCategory() uint8 { return id.byteAt(shiftCategory) }

// ParameterNumber returns byte 5 (GRIB2 Code Table 4.2).
func (id NumericID) ParameterNumber() uint8 { return id.byteAt(shiftNumber) }

// MasterTableVersion returns byte 4 (GRIB2 Code Table 1.0).
func (id NumericID) MasterTableVersion() uint8 { return id.byteAt(shiftMasterVersion) }

// OriginatingCenter reassembles the 16-bit centre from bytes 3 and 2.
func (id NumericID) OriginatingCenter() uint16 {
	return uint16(id.byteAt(shiftCenterHigh))<<8 | uint16(id.byteAt(shiftCenterLow))
}

// Subcenter returns byte 1.
func (id NumericID) Subcenter() uint8 { return id.byteAt(shiftSubcenter) }

// LocalTableVersion returns byte 0 (GRIB2 Code Table 1.1).
func (id NumericID) LocalTableVersion() uint8 { return id.byteAt(shiftLocalVersion) }

// Uint64 returns the packed value.
func (id NumericID) Uint64() uint64 { return uint64(id) }

func (id NumericID) String() string {
	return fmt.Sprintf(
		"NumericID{discipline=%d category=%d number=%d master_table=%d center=%d subcenter=%d local_table=%d}",
		id.ProductDiscipline(), id.ParameterCategory(), id.ParameterNumber(),
		id.MasterTableVersion(), id.OriginatingCenter(), id.Subcenter(), id.LocalTableVersion(),
	)
}

func (id NumericID) byteAt(shift uint) uint8 {
	return uint8((uint64(id) >> shift) & 0xFF)
}

// CategoryRange returns the inclusive bounds of every identifier in the given
// discipline and category.
func CategoryRange(discipline, category uint8) (lo, hi NumericID) {
	base := uint64(discipline)<<shiftDiscipline | uint64(category)<<shiftCategory
	return NumericID(base), NumericID(base | (1<<shiftCategory - 1))
}

// NumericIDBuilder assembles a NumericID. The zero value is not useful; start
// from NewNumericIDBuilder. Setters return a modified copy.
type NumericIDBuilder struct {
	discipline        uint8
	category          uint8
	number            uint8
	masterVersion     uint8
	originatingCenter uint16
	subcenter         uint8
	localVersion      uint8
}

// NewNumericIDBuilder starts an identifier for the given discipline, category
// and number with every remaining field set to its missing sentinel.
func NewNumericIDBuilder(discipline, category, number uint8) NumericIDBuilder {
	return NumericIDBuilder{
		discipline:        discipline,
		category:          category,
		number:            number,
		masterVersion:     MissingU8,
		originatingCenter: MissingU16,
		subcenter:         MissingU8,
		localVersion:      MissingU8,
	}
}

func (b NumericIDBuilder) WithMasterTableVersion(v uint8) NumericIDBuilder {
	b.masterVersion = v
	return b
}

func (b NumericIDBuilder) WithOriginatingCenter(c uint16) NumericIDBuilder {
	b.originatingCenter = c
	return b
}

func (b NumericIDBuilder) WithSubcenter(s uint8) NumericIDBuilder {
	b.subcenter = s
	return b
}

func (b NumericIDBuilder) WithLocalTableVersion(v uint8) NumericIDBuilder {
	b.localVersion = v
	return b
}

// Build packs the fields.
func (b NumericIDBuilder) Build() NumericID {
	return NumericID(
		uint64(b.discipline)<<shiftDiscipline |
			uint64(b.category)<<shiftCategory |
			uint64(b.number)<<shiftNumber |
			uint64(b.masterVersion)<<shiftMasterVersion |
			uint64(b.originatingCenter>>8)<<shiftCenterHigh |
			uint64(b.originatingCenter&0xFF)<<shiftCenterLow |
			uint64(b.subcenter)<<shiftSubcenter |
			uint64(b.localVersion)<<shiftLocalVersion,
	)
}
