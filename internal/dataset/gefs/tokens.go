package gefs

import (
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/domain"
)

const (
	namespacePrefix = "gefs."
	dateLayout      = "20060102"
	indexSuffix     = ".idx"
	analysisToken   = "anl"
)

// memberToken renders the filename prefix for an ensemble member.
func memberToken(m domain.EnsembleMember) string {
	switch m.Kind {
	case domain.Perturbed:
		return fmt.Sprintf("gep%02d", m.Number)
	case domain.Mean:
		return "geavg"
	case domain.Spread:
		return "gespr"
	default:
		return "gec00"
	}
}

func parseMemberToken(s string) (domain.EnsembleMember, bool) {
	switch s {
	case "gec00":
		return domain.ControlMember(), true
	case "geavg":
		return domain.MeanMember(), true
	case "gespr":
		return domain.SpreadMember(), true
	}
	if len(s) != 5 || s[:3] != "gep" {
		return domain.EnsembleMember{}, false
	}
	n, err := strconv.ParseUint(s[3:], 10, 16)
	if err != nil || n == 0 {
		return domain.EnsembleMember{}, false
	}
	return domain.PerturbedMember(uint16(n)), true
}

// stepToken renders a forecast step. Before V3 the analysis is "anl".
func stepToken(step time.Duration, analysisAsAnl bool) string {
	if step == 0 && analysisAsAnl {
		return analysisToken
	}
	return fmt.Sprintf("f%03d", int64(step/time.Hour))
}

func parseStepToken(s string) (time.Duration, bool) {
	if s == analysisToken {
		return 0, true
	}
	if len(s) < 4 || s[0] != 'f' {
		return 0, false
	}
	h, err := strconv.ParseUint(s[1:], 10, 16)
	if err != nil {
		return 0, false
	}
	return time.Duration(h) * time.Hour, true
}
