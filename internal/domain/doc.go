// Package domain models the coordinates used to address messages in a
// GRIB2 forecast archive.
//
// # Coordinates
//
// A single GRIB2 message in an ensemble forecast archive is addressed by
// five labels:
//
//	reference datetime  the model run, e.g. 2017-01-01T00Z
//	ensemble member     control, perturbed member N, ensemble mean or spread
//	forecast step       hours after the reference datetime (0 = analysis)
//	parameter           GRIB2 abbreviation, e.g. TMP, HGT, UGRD
//	vertical level      GRIB2 level description, e.g. "500 mb", "2 m above ground"
//
// Object paths only carry the first three; parameter and vertical level live
// inside the sidecar .idx files next to each GRIB2 file. Decoding a path
// therefore yields a [PartialCoordinate], and the remaining labels are
// filled from the .idx records ([IndexRecord]).
//
// # Labels
//
// [CoordLabels] holds the distinct values seen along each axis, sorted. It
// is the result of scanning an archive and is what downstream readers use to
// build their coordinate arrays.
package domain
