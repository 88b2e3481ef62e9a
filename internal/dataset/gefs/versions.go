package gefs

import (
	"time"

	"github.com/couchcryptid/grib-catalog/internal/dataset"
)

// Schema version identifiers. These name layout eras of the bucket, not
// GEFS model versions.
const (
	V0 = "V0"
	V1 = "V1"
	V2 = "V2"
	V3 = "V3"
)

// Spans lists the GEFS layout eras in start order. V2 covers the two runs,
// 2020-09-23T00 and T06, for which both the V1 and the V3 directory trees
// exist.
func Spans() []dataset.VersionSpan {
	return []dataset.VersionSpan{
		{ID: V0, Start: ymdh(2017, time.January, 1, 0)},
		{ID: V1, Start: ymdh(2018, time.July, 27, 0)},
		{ID: V2, Start: ymdh(2020, time.September, 23, 0)},
		{ID: V3, Start: ymdh(2020, time.September, 23, 12)},
	}
}

func ymdh(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}
