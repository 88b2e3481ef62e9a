package gefs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/dataset"
	"github.com/couchcryptid/grib-catalog/internal/domain"
)

// layout is the directory and filename scheme of one schema version. It
// sees the segments after gefs.YYYYMMDD/HH, with the .idx suffix already
// removed from the last one.
type layout interface {
	encode(c domain.Coordinate, set string) []string
	decode(path string, run time.Time, rest []string) (domain.PartialCoordinate, error)
	segments() []int
}

var (
	// gec00.t00z.pgrb2aanl, gep05.t06z.pgrb2bf120
	reLegacyFile = regexp.MustCompile(`^(gec00|gep\d{2}|geavg|gespr)\.t(\d{2})z\.pgrb2([ab])(anl|f\d{3})$`)

	// geavg.t00z.pgrb2a.0p50.f000, gec00.t12z.pgrb2s.0p25.f240
	reAtmosFile = regexp.MustCompile(`^(gec00|gep\d{2}|geavg|gespr)\.t(\d{2})z\.pgrb2([abs])\.0p(50|25)\.(f\d{3})$`)
)

// legacySet maps a parameter set onto the two sets published before V3.
func legacySet(set string) string {
	if set == "b" {
		return "b"
	}
	return "a"
}

// flatLayout is V0: every file sits directly in the run directory.
type flatLayout struct{}

func (flatLayout) segments() []int { return []int{1} }

func (flatLayout) encode(c domain.Coordinate, set string) []string {
	return []string{legacyFilename(c, legacySet(set))}
}

func (flatLayout) decode(path string, run time.Time, rest []string) (domain.PartialCoordinate, error) {
	return decodeLegacyFile(path, run, rest[0])
}

// setDirLayout is V1: files are grouped into pgrb2a and pgrb2b directories.
type setDirLayout struct{}

func (setDirLayout) segments() []int { return []int{2} }

func (setDirLayout) encode(c domain.Coordinate, set string) []string {
	set = legacySet(set)
	return []string{"pgrb2" + set, legacyFilename(c, set)}
}

func (setDirLayout) decode(path string, run time.Time, rest []string) (domain.PartialCoordinate, error) {
	dir := rest[0]
	if dir != "pgrb2a" && dir != "pgrb2b" {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindShape,
			"directory %q is not pgrb2a or pgrb2b", dir)
	}
	pc, err := decodeLegacyFile(path, run, rest[1])
	if err != nil {
		return pc, err
	}
	if "pgrb2"+pc.ParameterSet != dir {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
			"file set %q does not match directory %q", pc.ParameterSet, dir)
	}
	return pc, nil
}

func legacyFilename(c domain.Coordinate, set string) string {
	return fmt.Sprintf("%s.t%02dz.pgrb2%s%s",
		memberToken(c.EnsembleMember), c.ReferenceDatetime.UTC().Hour(), set, stepToken(c.ForecastStep, true))
}

func decodeLegacyFile(path string, run time.Time, name string) (domain.PartialCoordinate, error) {
	m := reLegacyFile.FindStringSubmatch(name)
	if m == nil {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
			"%q does not match <member>.tHHz.pgrb2<set><step>", name)
	}
	return fileCoordinate(path, run, m[1], m[2], m[3], m[4])
}

// componentLayout is V3: runs are split into atmos, chem and wave
// components, and atmos files into per-set, per-resolution directories.
type componentLayout struct{}

func (componentLayout) segments() []int { return []int{3} }

func (componentLayout) encode(c domain.Coordinate, set string) []string {
	res, dirRes := "50", "p5"
	switch set {
	case "s":
		res, dirRes = "25", "p25"
	case "b":
	default:
		set = "a"
	}
	name := fmt.Sprintf("%s.t%02dz.pgrb2%s.0p%s.%s",
		memberToken(c.EnsembleMember), c.ReferenceDatetime.UTC().Hour(), set, res, stepToken(c.ForecastStep, false))
	return []string{"atmos", "pgrb2" + set + dirRes, name}
}

func (componentLayout) decode(path string, run time.Time, rest []string) (domain.PartialCoordinate, error) {
	switch component := rest[0]; component {
	case "atmos":
		return decodeAtmos(path, run, rest[1], rest[2])
	case "chem", "wave":
		// Only the run is recoverable from chem and wave filenames.
		token := fmt.Sprintf(".t%02dz.", run.Hour())
		if !strings.Contains(rest[2], token) {
			return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
				"%q does not carry the run hour %s", rest[2], token)
		}
		return domain.PartialCoordinate{ReferenceDatetime: run, Component: component}, nil
	default:
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindShape,
			"unknown component %q", component)
	}
}

func decodeAtmos(path string, run time.Time, dir, name string) (domain.PartialCoordinate, error) {
	m := reAtmosFile.FindStringSubmatch(name)
	if m == nil {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
			"%q does not match <member>.tHHz.pgrb2<set>.0p<res>.fFFF", name)
	}
	set, res := m[3], m[4]
	wantDir := "pgrb2" + set + "p5"
	if res == "25" {
		wantDir = "pgrb2" + set + "p25"
	}
	if dir != wantDir {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindShape,
			"file %q belongs in %q, found in %q", name, wantDir, dir)
	}
	pc, err := fileCoordinate(path, run, m[1], m[2], set, m[5])
	if err != nil {
		return pc, err
	}
	pc.Component = "atmos"
	return pc, nil
}

// transitionLayout is V2: both the V1 and the V3 trees exist. Paths decode
// under either shape; encoding uses the V1 shape, whose directories hold the
// complete set of files for these runs.
type transitionLayout struct {
	legacy  setDirLayout
	current componentLayout
}

func (transitionLayout) segments() []int { return []int{2, 3} }

func (l transitionLayout) encode(c domain.Coordinate, set string) []string {
	return l.legacy.encode(c, set)
}

func (l transitionLayout) decode(path string, run time.Time, rest []string) (domain.PartialCoordinate, error) {
	if len(rest) == 2 {
		return l.legacy.decode(path, run, rest)
	}
	return l.current.decode(path, run, rest)
}

func fileCoordinate(path string, run time.Time, member, hour, set, step string) (domain.PartialCoordinate, error) {
	em, ok := parseMemberToken(member)
	if !ok {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
			"unknown ensemble member %q", member)
	}
	if h, err := strconv.Atoi(hour); err != nil || h != run.Hour() {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
			"file hour t%sz does not match run hour %02d", hour, run.Hour())
	}
	d, ok := parseStepToken(step)
	if !ok {
		return domain.PartialCoordinate{}, dataset.NewDecodeError(path, dataset.KindFilename,
			"unknown forecast step %q", step)
	}
	return domain.PartialCoordinate{
		ReferenceDatetime: run,
		EnsembleMember:    &em,
		ForecastStep:      &d,
		ParameterSet:      set,
	}, nil
}
