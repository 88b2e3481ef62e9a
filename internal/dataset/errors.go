package dataset

import (
	"errors"
	"fmt"
	"time"
)

// ErrBeforeDatasetStart is matched by BeforeDatasetStartError.
var ErrBeforeDatasetStart = errors.New("datetime precedes dataset start")

// BeforeDatasetStartError reports a reference datetime earlier than the
// first schema version.
type BeforeDatasetStartError struct {
	Datetime time.Time
	Start    time.Time
}

func (e *BeforeDatasetStartError) Error() string {
	return fmt.Sprintf("%s: %s is before %s",
		ErrBeforeDatasetStart, e.Datetime.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *BeforeDatasetStartError) Unwrap() error { return ErrBeforeDatasetStart }

// DecodeErrorKind says which check a path failed.
type DecodeErrorKind string

const (
	KindPrefix      DecodeErrorKind = "prefix"
	KindShape       DecodeErrorKind = "shape"
	KindSuffix      DecodeErrorKind = "suffix"
	KindDate        DecodeErrorKind = "date"
	KindHour        DecodeErrorKind = "hour"
	KindFilename    DecodeErrorKind = "filename"
	KindBeforeStart DecodeErrorKind = "before_start"
)

// DecodeError reports a path that could not be decoded.
type DecodeError struct {
	Path   string
	Kind   DecodeErrorKind
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %q: %s: %s: %v", e.Path, e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %q: %s: %s", e.Path, e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewDecodeError builds a DecodeError with a formatted reason.
func NewDecodeError(path string, kind DecodeErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// DecodeErrorKindOf returns the kind of err if it wraps a DecodeError.
func DecodeErrorKindOf(err error) (DecodeErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
