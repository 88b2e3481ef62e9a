package tables

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/spf13/afero"
)

var (
	reMasterTable = regexp.MustCompile(`^grib2_table_4_2_(\d{1,2})_(\d{1,3})\.csv$`)
	reLocalTable  = regexp.MustCompile(`^grib2_table_4_2_local_[A-Z][A-Za-z]+\.csv$`)
)

// Table is one parsed CSV. Master tables carry their discipline and category
// from the filename; local tables carry them per row.
type Table struct {
	Filename   string
	Local      bool
	Discipline uint8
	Category   uint8
	Rows       []Row
}

// Populate inserts every row of every table into b. Master rows get the
// current master table version and leave the centre missing; local rows are
// stamped with the origin recorded for their file in index. The first error
// aborts population.
func Populate(b *grib.DatabaseBuilder, tables []Table, index LocalIndex) error {
	for _, t := range tables {
		var origin Origin
		if t.Local {
			o, ok := index[t.Filename]
			if !ok {
				return fmt.Errorf("%s: not listed in %s", t.Filename, LocalIndexFilename)
			}
			origin = o
		}

		for i, row := range t.Rows {
			id, err := numericID(t, row, origin)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", t.Filename, i, err)
			}
			p := grib.Parameter{Abbrev: row.ShortName, Name: row.Name, Unit: row.Unit}
			if err := b.Insert(id, p); err != nil {
				return fmt.Errorf("%s row %d: %w", t.Filename, i, err)
			}
		}
	}
	return nil
}

func numericID(t Table, row Row, origin Origin) (grib.NumericID, error) {
	number, err := toByte("subcat", row.Subcat)
	if err != nil {
		return 0, err
	}
	if !t.Local {
		return grib.NewNumericIDBuilder(t.Discipline, t.Category, number).
			WithMasterTableVersion(grib.MasterTableVersion).
			Build(), nil
	}

	if row.Prod == nil || row.Cat == nil {
		return 0, fmt.Errorf("local table row %q has no prod or cat", row.Name)
	}
	discipline, err := toByte("prod", *row.Prod)
	if err != nil {
		return 0, err
	}
	category, err := toByte("cat", *row.Cat)
	if err != nil {
		return 0, err
	}
	return grib.NewNumericIDBuilder(discipline, category, number).
		WithMasterTableVersion(grib.MasterTableVersion).
		WithOriginatingCenter(origin.Center).
		WithSubcenter(origin.Subcenter).
		Build(), nil
}

func toByte(name string, v int) (uint8, error) {
	if v < 0 || v > math.MaxUint8 {
		return 0, fmt.Errorf("%s %d out of range", name, v)
	}
	return uint8(v), nil
}

// Load reads every table 4.2 CSV in dir and returns the populated database.
// Any unreadable or unrecognised file aborts the load; no partial database
// is returned.
func Load(fs afero.Fs, dir string) (*grib.ParameterDatabase, error) {
	paths, err := afero.Glob(fs, filepath.Join(dir, "grib2_table_4_2_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no grib2_table_4_2 CSV files in %s", dir)
	}
	sort.Strings(paths)

	index, err := readLocalIndexFile(fs, filepath.Join(dir, LocalIndexFilename))
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		if name == LocalIndexFilename {
			continue
		}

		t := Table{Filename: name}
		switch {
		case reMasterTable.MatchString(name):
			m := reMasterTable.FindStringSubmatch(name)
			d, _ := strconv.Atoi(m[1])
			c, _ := strconv.Atoi(m[2])
			if t.Discipline, err = toByte("discipline", d); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if t.Category, err = toByte("category", c); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		case reLocalTable.MatchString(name):
			t.Local = true
		default:
			return nil, fmt.Errorf("unrecognised table filename %s", name)
		}

		if t.Rows, err = readRowsFile(fs, path); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	b := grib.NewDatabaseBuilder()
	if err := Populate(b, tables, index); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func readRowsFile(fs afero.Fs, path string) ([]Row, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func readLocalIndexFile(fs afero.Fs, path string) (LocalIndex, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	index, err := ReadLocalIndex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return index, nil
}
