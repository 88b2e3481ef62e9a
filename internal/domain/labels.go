package domain

import "time"

// CoordLabels holds the distinct values seen along each coordinate axis,
// sorted ascending.
type CoordLabels struct {
	ReferenceDatetimes []time.Time      `json:"reference_datetimes"`
	EnsembleMembers    []EnsembleMember `json:"ensemble_members"`
	ForecastSteps      []time.Duration  `json:"forecast_steps"`
	Parameters         []string         `json:"parameters"`
	VerticalLevels     []string         `json:"vertical_levels"`
}
