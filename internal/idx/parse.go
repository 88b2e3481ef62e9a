// Package idx reads the sidecar inventories (.idx files) that NOAA
// publishes next to each GRIB2 file. Each line describes one message:
//
//	1:0:d=2017010100:HGT:10 mb:anl:ENS=low-res ctl
//	2:50487:d=2017010100:HGT:50 mb:6 hour fcst:ENS=+1
//
// The fields are message number, byte offset, reference datetime,
// parameter abbreviation, vertical level, forecast step and, for ensemble
// products, the ensemble member.
package idx

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/domain"
)

const minFields = 6

// ParseError reports a malformed line. Line is 1-based.
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("idx line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("idx line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	reHourFcst  = regexp.MustCompile(`^(\d+) hour fcst$`)
	reDayFcst   = regexp.MustCompile(`^(\d+) day fcst$`)
	reRangeFcst = regexp.MustCompile(`^(\d+)-(\d+) hour (?:acc|ave|max|min) fcst$`)
	rePerturbed = regexp.MustCompile(`^ENS=[+-](\d+)$`)
)

// Parse reads every record of an .idx file. Any malformed line fails the
// whole file.
func Parse(b []byte) ([]domain.IndexRecord, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = ':'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	var records []domain.IndexRecord
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			line := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, &ParseError{Line: line, Reason: "malformed line", Err: err}
		}
		line, _ := r.FieldPos(0)
		rec, perr := parseRecord(fields)
		if perr != nil {
			perr.Line = line
			return nil, perr
		}
		records = append(records, rec)
	}
}

func parseRecord(f []string) (domain.IndexRecord, *ParseError) {
	if len(f) < minFields {
		return domain.IndexRecord{}, &ParseError{Reason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(f))}
	}

	msgID, err := strconv.ParseUint(f[0], 10, 32)
	if err != nil {
		return domain.IndexRecord{}, &ParseError{Reason: "message number", Err: err}
	}
	offset, err := strconv.ParseUint(f[1], 10, 64)
	if err != nil {
		return domain.IndexRecord{}, &ParseError{Reason: "byte offset", Err: err}
	}
	ref, err := parseReferenceDatetime(f[2])
	if err != nil {
		return domain.IndexRecord{}, &ParseError{Reason: "reference datetime", Err: err}
	}
	step, err := ParseStep(f[5])
	if err != nil {
		return domain.IndexRecord{}, &ParseError{Reason: "forecast step", Err: err}
	}

	rec := domain.IndexRecord{
		MessageID:         uint32(msgID),
		ByteOffset:        offset,
		ReferenceDatetime: ref,
		Parameter:         f[3],
		VerticalLevel:     f[4],
		ForecastStep:      step,
		StepToken:         f[5],
	}
	if len(f) > minFields {
		rec.EnsembleToken = f[6]
		if m, ok := ParseEnsembleMember(f[6]); ok {
			rec.EnsembleMember = &m
		}
	}
	return rec, nil
}

// parseReferenceDatetime reads "d=YYYYMMDDHH".
func parseReferenceDatetime(s string) (time.Time, error) {
	v, ok := strings.CutPrefix(s, "d=")
	if !ok {
		return time.Time{}, fmt.Errorf("%q has no d= prefix", s)
	}
	return time.Parse("2006010215", v)
}

// ParseStep converts a wgrib2 forecast-time description into a duration.
// Accumulations and averages are placed at the end of their window.
func ParseStep(s string) (time.Duration, error) {
	if s == "anl" {
		return 0, nil
	}
	if m := reHourFcst.FindStringSubmatch(s); m != nil {
		return hoursOf(m[1])
	}
	if m := reRangeFcst.FindStringSubmatch(s); m != nil {
		return hoursOf(m[2])
	}
	if m := reDayFcst.FindStringSubmatch(s); m != nil {
		d, err := hoursOf(m[1])
		return d * 24, err
	}
	return 0, fmt.Errorf("unrecognised forecast step %q", s)
}

func hoursOf(s string) (time.Duration, error) {
	h, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return time.Duration(h) * time.Hour, nil
}

// ParseEnsembleMember interprets the ENS= field. Unknown tokens are not an
// error; the member is simply left unset.
func ParseEnsembleMember(s string) (domain.EnsembleMember, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ens=low-res ctl", "ens=hi-res ctl":
		return domain.ControlMember(), true
	case "ens mean", "ens=mean":
		return domain.MeanMember(), true
	case "ens spread", "ens=spread", "ens std dev":
		return domain.SpreadMember(), true
	}
	if m := rePerturbed.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		n, err := strconv.ParseUint(m[1], 10, 16)
		if err == nil && n > 0 {
			return domain.PerturbedMember(uint16(n)), true
		}
	}
	return domain.EnsembleMember{}, false
}

// Locations derives the byte range of each message. A message ends where
// the next one starts; the last runs to the end of the object, or has
// length -1 if size does not extend past its offset.
func Locations(path string, size int64, records []domain.IndexRecord) []domain.MessageLocation {
	out := make([]domain.MessageLocation, len(records))
	for i, rec := range records {
		loc := domain.MessageLocation{Path: path, Offset: rec.ByteOffset, Length: -1}
		switch {
		case i+1 < len(records):
			if next := records[i+1].ByteOffset; next >= rec.ByteOffset {
				loc.Length = int64(next - rec.ByteOffset)
			}
		case size > int64(rec.ByteOffset):
			loc.Length = size - int64(rec.ByteOffset)
		}
		out[i] = loc
	}
	return out
}
