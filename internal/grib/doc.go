// Package grib identifies GRIB2 parameters and keeps the lookup tables that
// map them to human-readable metadata.
//
// # Numeric identifiers
//
// A GRIB2 parameter is only unambiguous once the product discipline,
// parameter category and parameter number are qualified by the table
// versions and the producing centre. [NumericID] packs all seven fields into
// a single uint64 so that identifiers compare, hash and sort as plain
// integers:
//
//	byte:   7          6         5       4               3..2             1          0
//	        discipline category  number  master version  orig. centre    subcentre  local version
//
// Fields that do not apply (for example the originating centre of a
// parameter from the WMO master tables) hold all-ones sentinels,
// [MissingU8] and [MissingU16]. Because the most significant bytes hold the
// discipline and category, integer order groups parameters by category,
// which [CategoryRange] exploits for range scans.
//
// # Parameter database
//
// [ParameterDatabase] is built once through a [DatabaseBuilder] and is
// read-only afterwards, so concurrent readers need no locking.
package grib
