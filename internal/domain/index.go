package domain

import "time"

// IndexRecord is one line of a GRIB2 sidecar .idx file.
type IndexRecord struct {
	MessageID         uint32
	ByteOffset        uint64
	ReferenceDatetime time.Time
	Parameter         string
	VerticalLevel     string
	ForecastStep      time.Duration
	StepToken         string
	EnsembleMember    *EnsembleMember
	EnsembleToken     string
}

// MessageLocation is the byte range of one GRIB2 message. Length is -1 when
// the message runs to the end of an object of unknown size.
type MessageLocation struct {
	Path   string `json:"path"`
	Offset uint64 `json:"offset"`
	Length int64  `json:"length"`
}
