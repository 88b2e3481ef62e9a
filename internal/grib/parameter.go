package grib

import (
	"errors"
	"fmt"
)

// Parameter is the human-readable metadata for a GRIB2 parameter.
// Abbrev is not unique across centres; an empty Abbrev means the parameter
// has no short form.
type Parameter struct {
	Abbrev string `json:"abbrev"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
}

// Entry pairs a parameter with its identifier.
type Entry struct {
	ID        NumericID `json:"numeric_id"`
	Parameter Parameter `json:"parameter"`
}

var (
	// ErrDuplicateNumericID is matched by an InsertionError whose identifier
	// is already present.
	ErrDuplicateNumericID = errors.New("duplicate numeric id")

	// ErrDuplicateAbbrevMapping is matched by an InsertionError whose
	// (abbreviation, identifier) pair is already indexed.
	ErrDuplicateAbbrevMapping = errors.New("duplicate abbreviation mapping")

	// ErrSealed is returned when inserting into a builder that has already
	// produced its database.
	ErrSealed = errors.New("parameter database builder is sealed")
)

// InsertionErrorKind distinguishes the two collision checks.
type InsertionErrorKind int

const (
	DuplicateNumericID InsertionErrorKind = iota + 1
	DuplicateAbbrevMapping
)

// InsertionError reports a rejected insert. Existing is only set for
// DuplicateNumericID.
type InsertionError struct {
	Kind      InsertionErrorKind
	ID        NumericID
	Parameter Parameter
	Existing  Parameter
}

func (e *InsertionError) Error() string {
	switch e.Kind {
	case DuplicateNumericID:
		return fmt.Sprintf("%s: %s already maps to %q (%s), cannot insert %q (%s)",
			ErrDuplicateNumericID, e.ID, e.Existing.Abbrev, e.Existing.Name, e.Parameter.Abbrev, e.Parameter.Name)
	case DuplicateAbbrevMapping:
		return fmt.Sprintf("%s: %q already contains %s", ErrDuplicateAbbrevMapping, e.Parameter.Abbrev, e.ID)
	default:
		return fmt.Sprintf("insert %s: unknown error kind %d", e.ID, e.Kind)
	}
}

func (e *InsertionError) Unwrap() error {
	switch e.Kind {
	case DuplicateNumericID:
		return ErrDuplicateNumericID
	case DuplicateAbbrevMapping:
		return ErrDuplicateAbbrevMapping
	default:
		return nil
	}
}
