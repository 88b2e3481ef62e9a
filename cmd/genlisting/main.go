// Command genlisting writes a synthetic GEFS archive of sidecar index files
// to a local directory. The tree uses the same path layouts as the public
// bucket, so it can be scanned with CATALOG_LOCAL_DIR in place of S3.
//
// Usage:
//
//	go run ./cmd/genlisting -out data/mock -start 2024100800 -runs 4 -members 5
package main

import (
	"flag"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/dataset/gefs"
	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// message is one synthetic GRIB2 message listed in every index file.
type message struct {
	parameter string
	level     string
	size      int64
	// accumulated messages are absent from the analysis.
	accumulated bool
}

var messages = []message{
	{parameter: "HGT", level: "500 mb", size: 52_000},
	{parameter: "TMP", level: "2 m above ground", size: 61_500},
	{parameter: "TMP", level: "850 mb", size: 58_200},
	{parameter: "UGRD", level: "10 m above ground", size: 70_100},
	{parameter: "VGRD", level: "10 m above ground", size: 69_800},
	{parameter: "APCP", level: "surface", size: 33_400, accumulated: true},
}

type options struct {
	start     time.Time
	runs      int
	members   int
	maxStep   int
	stepHours int
	withData  bool
}

func main() {
	out := flag.String("out", "", "output directory")
	start := flag.String("start", "2017010100", "first run, YYYYMMDDHH")
	runs := flag.Int("runs", 2, "number of 6-hourly runs")
	members := flag.Int("members", 2, "number of perturbed members")
	maxStep := flag.Int("max-step", 12, "last forecast step in hours")
	stepHours := flag.Int("step", 6, "forecast step spacing in hours")
	withData := flag.Bool("data", false, "also create sparse GRIB2 data files")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		log.Fatal("missing required flag: -out")
	}
	t, err := time.Parse("2006010215", *start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}

	opts := options{start: t, runs: *runs, members: *members, maxStep: *maxStep, stepHours: *stepHours, withData: *withData}
	fsys := afero.NewBasePathFs(afero.NewOsFs(), *out)
	n, size, err := generate(fsys, gefs.New(), opts)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d index files (%s) under %s", n, humanize.Bytes(uint64(size)), *out)
}

// generate writes one index file per run, member and step and returns the
// number of files and bytes written.
func generate(fsys afero.Fs, ds *gefs.Dataset, opts options) (int, int64, error) {
	if opts.stepHours <= 0 {
		return 0, 0, fmt.Errorf("step spacing must be positive, got %d", opts.stepHours)
	}

	members := []domain.EnsembleMember{domain.ControlMember()}
	for i := 1; i <= opts.members; i++ {
		members = append(members, domain.PerturbedMember(uint16(i)))
	}
	members = append(members, domain.MeanMember(), domain.SpreadMember())

	var files int
	var written int64
	for r := range opts.runs {
		run := opts.start.UTC().Add(time.Duration(r) * 6 * time.Hour)
		for _, m := range members {
			for h := 0; h <= opts.maxStep; h += opts.stepHours {
				c := domain.Coordinate{
					ReferenceDatetime: run,
					EnsembleMember:    m,
					ForecastStep:      time.Duration(h) * time.Hour,
					Parameter:         "TMP",
				}
				p, err := ds.EncodeIndex(c)
				if err != nil {
					return files, written, err
				}
				body, dataSize := indexBody(c)
				if err := writeFile(fsys, p, []byte(body)); err != nil {
					return files, written, err
				}
				if opts.withData {
					if err := createSparse(fsys, strings.TrimSuffix(p, ".idx"), dataSize); err != nil {
						return files, written, err
					}
				}
				files++
				written += int64(len(body))
			}
		}
	}
	return files, written, nil
}

// indexBody renders the index lines for c and the size of its data file.
func indexBody(c domain.Coordinate) (string, int64) {
	var sb strings.Builder
	var offset int64
	id := 0
	hours := int(c.ForecastStep / time.Hour)
	for _, msg := range messages {
		if msg.accumulated && hours == 0 {
			continue
		}
		id++
		fmt.Fprintf(&sb, "%d:%d:d=%s:%s:%s:%s:%s\n",
			id, offset, c.ReferenceDatetime.Format("2006010215"), msg.parameter, msg.level,
			stepDescription(hours, msg.accumulated), ensField(c.EnsembleMember))
		offset += msg.size
	}
	return sb.String(), offset
}

func stepDescription(hours int, accumulated bool) string {
	switch {
	case hours == 0:
		return "anl"
	case accumulated:
		return fmt.Sprintf("0-%d hour acc fcst", hours)
	default:
		return fmt.Sprintf("%d hour fcst", hours)
	}
}

func ensField(m domain.EnsembleMember) string {
	switch m.Kind {
	case domain.Perturbed:
		return fmt.Sprintf("ENS=+%d", m.Number)
	case domain.Mean:
		return "ens mean"
	case domain.Spread:
		return "ens spread"
	default:
		return "ENS=low-res ctl"
	}
}

func writeFile(fsys afero.Fs, p string, b []byte) error {
	if err := fsys.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", p, err)
	}
	if err := afero.WriteFile(fsys, p, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func createSparse(fsys afero.Fs, p string, size int64) error {
	f, err := fsys.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return fmt.Errorf("size %s: %w", p, err)
	}
	return f.Close()
}
