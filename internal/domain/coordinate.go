package domain

import (
	"cmp"
	"fmt"
	"time"
)

// EnsembleKind classifies an ensemble member.
type EnsembleKind uint8

const (
	Control EnsembleKind = iota
	Perturbed
	Mean
	Spread
)

func (k EnsembleKind) String() string {
	switch k {
	case Control:
		return "control"
	case Perturbed:
		return "perturbed"
	case Mean:
		return "mean"
	case Spread:
		return "spread"
	default:
		return fmt.Sprintf("EnsembleKind(%d)", uint8(k))
	}
}

func (k EnsembleKind) MarshalText() ([]byte, error) {
	if k > Spread {
		return nil, fmt.Errorf("invalid ensemble kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *EnsembleKind) UnmarshalText(b []byte) error {
	for c := Control; c <= Spread; c++ {
		if string(b) == c.String() {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown ensemble kind %q", b)
}

// EnsembleMember identifies one member of an ensemble forecast. Number is
// only meaningful for perturbed members.
type EnsembleMember struct {
	Kind   EnsembleKind `json:"kind"`
	Number uint16       `json:"number,omitempty"`
}

func ControlMember() EnsembleMember           { return EnsembleMember{Kind: Control} }
func PerturbedMember(n uint16) EnsembleMember { return EnsembleMember{Kind: Perturbed, Number: n} }
func MeanMember() EnsembleMember              { return EnsembleMember{Kind: Mean} }
func SpreadMember() EnsembleMember            { return EnsembleMember{Kind: Spread} }

// Compare orders control first, then perturbed members by number, then the
// mean and the spread.
func (m EnsembleMember) Compare(o EnsembleMember) int {
	if c := cmp.Compare(m.Kind, o.Kind); c != 0 {
		return c
	}
	return cmp.Compare(m.Number, o.Number)
}

func (m EnsembleMember) String() string {
	if m.Kind == Perturbed {
		return fmt.Sprintf("perturbed-%02d", m.Number)
	}
	return m.Kind.String()
}

// Coordinate fully addresses one GRIB2 message.
type Coordinate struct {
	ReferenceDatetime time.Time
	EnsembleMember    EnsembleMember
	ForecastStep      time.Duration
	Parameter         string
	VerticalLevel     string
}

// PartialCoordinate is what a dataset path reveals about the messages in the
// file it names. ReferenceDatetime and Version are always set.
type PartialCoordinate struct {
	ReferenceDatetime time.Time
	Version           string
	EnsembleMember    *EnsembleMember
	ForecastStep      *time.Duration
	ParameterSet      string
	Component         string
}
