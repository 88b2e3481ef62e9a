// Package gefs encodes and decodes the object paths of NOAA's Global
// Ensemble Forecast System archive (s3://noaa-gefs-pds).
//
// The bucket layout changed three times:
//
//	V0  2017-01-01T00  gefs.20170101/00/gec00.t00z.pgrb2aanl
//	V1  2018-07-27T00  gefs.20180727/00/pgrb2a/gec00.t00z.pgrb2aanl
//	V2  2020-09-23T00  V1 and V3 trees side by side (two runs only)
//	V3  2020-09-23T12  gefs.20241008/00/atmos/pgrb2ap5/geavg.t00z.pgrb2a.0p50.f000
//
// Every GRIB2 file has a sidecar with the same name plus ".idx".
package gefs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/dataset"
	"github.com/couchcryptid/grib-catalog/internal/domain"
)

// RunPrefixDepth is the number of directory levels above a run:
// gefs.YYYYMMDD/ and HH/.
const RunPrefixDepth = 2

// Dataset is the versioned GEFS path scheme. It is immutable and safe for
// concurrent use.
type Dataset struct {
	root          string
	parameterSets map[string]string
	resolver      *dataset.Resolver
	layouts       map[string]layout
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithRoot requires every path to start with root, typically the bucket
// name when paths are bucket-qualified.
func WithRoot(root string) Option {
	return func(d *Dataset) { d.root = strings.Trim(root, "/") }
}

// WithParameterSets maps parameter abbreviations to the file set ("a", "b"
// or "s") that carries them. Unlisted parameters use set "a".
func WithParameterSets(sets map[string]string) Option {
	return func(d *Dataset) {
		for k, v := range sets {
			d.parameterSets[k] = v
		}
	}
}

// New returns the GEFS dataset.
func New(opts ...Option) *Dataset {
	resolver, err := dataset.NewResolver(Spans()...)
	if err != nil {
		panic(fmt.Sprintf("gefs: invalid version spans: %v", err))
	}
	d := &Dataset{
		parameterSets: make(map[string]string),
		resolver:      resolver,
		layouts: map[string]layout{
			V0: flatLayout{},
			V1: setDirLayout{},
			V2: transitionLayout{},
			V3: componentLayout{},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the configured path root.
func (d *Dataset) Root() string { return d.root }

// Resolve returns the schema version in effect at t.
func (d *Dataset) Resolve(t time.Time) (dataset.VersionSpan, error) {
	return d.resolver.Resolve(t)
}

// Resolver exposes the version table.
func (d *Dataset) Resolver() *dataset.Resolver { return d.resolver }

// Codec returns the codec of one schema version. It decodes only that
// version's shapes and does not consult the resolver.
func (d *Dataset) Codec(versionID string) (dataset.Codec, error) {
	l, ok := d.layouts[versionID]
	if !ok {
		return nil, fmt.Errorf("gefs: unknown version %q", versionID)
	}
	return versionCodec{d: d, id: versionID, layout: l}, nil
}

// ParameterSet returns the file set that carries the parameter.
func (d *Dataset) ParameterSet(abbrev string) string {
	if s, ok := d.parameterSets[abbrev]; ok {
		return s
	}
	return "a"
}

// Encode returns the GRIB2 data file path for c using the layout in effect
// at its reference datetime.
func (d *Dataset) Encode(c domain.Coordinate) (string, error) {
	span, err := d.resolver.Resolve(c.ReferenceDatetime)
	if err != nil {
		return "", err
	}
	return d.encodeWith(d.layouts[span.ID], c), nil
}

// EncodeIndex returns the sidecar .idx path for c.
func (d *Dataset) EncodeIndex(c domain.Coordinate) (string, error) {
	p, err := d.Encode(c)
	if err != nil {
		return "", err
	}
	return p + indexSuffix, nil
}

// EncodeRunPrefix returns the directory prefix of the run at t, with a
// trailing slash.
func (d *Dataset) EncodeRunPrefix(t time.Time) string {
	t = t.UTC()
	return d.join([]string{namespacePrefix + t.Format(dateLayout), fmt.Sprintf("%02d", t.Hour())}) + "/"
}

// Decode parses a sidecar .idx path. Structure is checked before any field
// is interpreted: root, segment count and suffix first, then the run date
// and hour, then the version-specific directories and filename.
func (d *Dataset) Decode(path string) (domain.PartialCoordinate, error) {
	parts, run, err := d.split(path)
	if err != nil {
		return domain.PartialCoordinate{}, err
	}
	span, rerr := d.resolver.Resolve(run)
	if rerr != nil {
		return domain.PartialCoordinate{}, &dataset.DecodeError{
			Path: path, Kind: dataset.KindBeforeStart, Reason: "run precedes the first schema version", Err: rerr,
		}
	}
	return decodeWith(path, span.ID, d.layouts[span.ID], run, parts)
}

// DecodeRunPrefix parses a gefs.YYYYMMDD/HH/ directory prefix.
func (d *Dataset) DecodeRunPrefix(prefix string) (domain.PartialCoordinate, error) {
	rel, err := d.relative(prefix)
	if err != nil {
		return domain.PartialCoordinate{}, err
	}
	parts := strings.Split(strings.TrimSuffix(rel, "/"), "/")
	if len(parts) != RunPrefixDepth {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(prefix, dataset.KindShape,
			"run prefix needs %d segments, got %d", RunPrefixDepth, len(parts))
	}
	run, err := parseRun(prefix, parts[0], parts[1])
	if err != nil {
		return domain.PartialCoordinate{}, err
	}
	span, rerr := d.resolver.Resolve(run)
	if rerr != nil {
		return domain.PartialCoordinate{}, &dataset.DecodeError{
			Path: prefix, Kind: dataset.KindBeforeStart, Reason: "run precedes the first schema version", Err: rerr,
		}
	}
	return domain.PartialCoordinate{ReferenceDatetime: run, Version: span.ID}, nil
}

// RunPrefixDepth reports how many directory levels lie above a run.
func (d *Dataset) RunPrefixDepth() int { return RunPrefixDepth }

// split validates the version-independent structure of an index path and
// returns the segments after the run directory.
func (d *Dataset) split(path string) ([]string, time.Time, error) {
	rel, err := d.relative(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !strings.HasSuffix(rel, indexSuffix) {
		return nil, time.Time{}, dataset.NewDecodeError(path, dataset.KindSuffix, "missing %s suffix", indexSuffix)
	}
	parts := strings.Split(strings.TrimSuffix(rel, indexSuffix), "/")
	if len(parts) < 3 || len(parts) > 5 {
		return nil, time.Time{}, dataset.NewDecodeError(path, dataset.KindShape,
			"expected 3 to 5 segments, got %d", len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return nil, time.Time{}, dataset.NewDecodeError(path, dataset.KindShape, "segment %d is empty", i)
		}
	}
	run, err := parseRun(path, parts[0], parts[1])
	if err != nil {
		return nil, time.Time{}, err
	}
	return parts[2:], run, nil
}

func (d *Dataset) relative(path string) (string, error) {
	if d.root == "" {
		return strings.TrimPrefix(path, "/"), nil
	}
	rel, ok := strings.CutPrefix(strings.TrimPrefix(path, "/"), d.root+"/")
	if !ok {
		return "", dataset.NewDecodeError(path, dataset.KindPrefix, "not under root %q", d.root)
	}
	return rel, nil
}

func (d *Dataset) join(parts []string) string {
	if d.root == "" {
		return strings.Join(parts, "/")
	}
	return d.root + "/" + strings.Join(parts, "/")
}

func (d *Dataset) encodeWith(l layout, c domain.Coordinate) string {
	t := c.ReferenceDatetime.UTC()
	parts := []string{namespacePrefix + t.Format(dateLayout), fmt.Sprintf("%02d", t.Hour())}
	parts = append(parts, l.encode(c, d.ParameterSet(c.Parameter))...)
	return d.join(parts)
}

func decodeWith(path, id string, l layout, run time.Time, rest []string) (domain.PartialCoordinate, error) {
	if !acceptsSegments(l, len(rest)) {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindShape,
			"version %s does not use %d segments", id, len(rest)+RunPrefixDepth)
	}
	pc, err := l.decode(path, run, rest)
	if err != nil {
		return domain.PartialCoordinate{}, err
	}
	pc.Version = id
	return pc, nil
}

func acceptsSegments(l layout, n int) bool {
	for _, s := range l.segments() {
		if s == n {
			return true
		}
	}
	return false
}

// parseRun reads the gefs.YYYYMMDD and HH segments.
func parseRun(path, daySeg, hourSeg string) (time.Time, error) {
	date, ok := strings.CutPrefix(daySeg, namespacePrefix)
	if !ok {
		return time.Time{}, dataset.NewDecodeError(path, dataset.KindPrefix,
			"segment %q is not in the %s namespace", daySeg, strings.TrimSuffix(namespacePrefix, "."))
	}
	if len(date) != len(dateLayout) {
		return time.Time{}, dataset.NewDecodeError(path, dataset.KindDate, "%q is not YYYYMMDD", date)
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, &dataset.DecodeError{Path: path, Kind: dataset.KindDate, Reason: fmt.Sprintf("%q is not a valid date", date), Err: err}
	}
	if len(hourSeg) != 2 || !isDigit(hourSeg[0]) || !isDigit(hourSeg[1]) {
		return time.Time{}, dataset.NewDecodeError(path, dataset.KindHour, "%q is not a two-digit hour", hourSeg)
	}
	h, err := strconv.Atoi(hourSeg)
	if err != nil || h > 23 {
		return time.Time{}, dataset.NewDecodeError(path, dataset.KindHour, "%q is not an hour between 00 and 23", hourSeg)
	}
	return day.Add(time.Duration(h) * time.Hour), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// versionCodec pins a Dataset to a single layout.
type versionCodec struct {
	d      *Dataset
	id     string
	layout layout
}

func (c versionCodec) Encode(coord domain.Coordinate) string {
	return c.d.encodeWith(c.layout, coord)
}

func (c versionCodec) Decode(path string) (domain.PartialCoordinate, error) {
	parts, run, err := c.d.split(path)
	if err != nil {
		return domain.PartialCoordinate{}, err
	}
	return decodeWith(path, c.id, c.layout, run, parts)
}
