// Command paramaudit loads a directory of GDAL GRIB2 parameter tables into a
// parameter database and reports on it: how many parameters were loaded,
// which abbreviations are shared by several parameters, and what any
// requested abbreviations resolve to.
//
// Usage:
//
//	go run ./cmd/paramaudit -tables-dir /usr/share/gdal -abbrev TMP,APCP
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/couchcryptid/grib-catalog/internal/tables"
	"github.com/spf13/afero"
)

// tablesDirUsage names the only files tables.Load reads.
const tablesDirUsage = "directory containing the grib2_table_4_2_*.csv tables, including grib2_table_4_2_local_index.csv"

func main() {
	tablesDir := flag.String("tables-dir", "", tablesDirUsage)
	abbrevs := flag.String("abbrev", "", "comma-separated abbreviations to look up")
	prefix := flag.String("prefix", "", "list abbreviations starting with this prefix")
	strict := flag.Bool("strict", false, "exit non-zero when abbreviations are shared")
	flag.Parse()

	if *tablesDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	db, err := tables.Load(afero.NewOsFs(), *tablesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	dups := report(os.Stdout, db, splitList(*abbrevs), *prefix)
	if *strict && dups > 0 {
		os.Exit(2)
	}
}

// report writes the audit and returns the number of shared abbreviations.
func report(w io.Writer, db *grib.ParameterDatabase, abbrevs []string, prefix string) int {
	fmt.Fprintln(w, "=== GRIB2 Parameter Audit ===")
	fmt.Fprintf(w, "parameters: %d\n", db.Len())

	dups := db.DuplicateAbbreviationCount()
	fmt.Fprintf(w, "shared abbreviations: %d\n", dups)
	if dups > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, db.DescribeDuplicateAbbreviations())
	}

	for _, a := range abbrevs {
		fmt.Fprintln(w)
		entries := db.LookupByAbbrev(a)
		if len(entries) == 0 {
			fmt.Fprintf(w, "%s: not found\n", a)
			continue
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s: %s discipline=%d category=%d number=%d center=%d subcenter=%d name=%q unit=%q\n",
				a, e.ID, e.ID.ProductDiscipline(), e.ID.ParameterCategory(), e.ID.ParameterNumber(),
				e.ID.OriginatingCenter(), e.ID.Subcenter(), e.Parameter.Name, e.Parameter.Unit)
		}
	}

	if prefix != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "abbreviations with prefix %q: %s\n", prefix, strings.Join(db.AbbrevsWithPrefix(prefix), ", "))
	}
	return dups
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
