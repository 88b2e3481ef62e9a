package domain

import "time"

// ObjectMeta describes one object returned by a storage listing.
type ObjectMeta struct {
	Path string
	Size int64
}

// Listing is the result of a delimiter listing: the common prefixes one
// level down and the objects directly under the listed prefix.
type Listing struct {
	Prefixes []string
	Objects  []ObjectMeta
}

// CatalogEntry records one decoded sidecar index file. It is the unit
// published to downstream consumers.
type CatalogEntry struct {
	Path              string          `json:"path"`
	Size              int64           `json:"size"`
	Version           string          `json:"version"`
	ReferenceDatetime time.Time       `json:"reference_datetime"`
	EnsembleMember    *EnsembleMember `json:"ensemble_member,omitempty"`
	ForecastStepHours *int64          `json:"forecast_step_hours,omitempty"`
	ParameterSet      string          `json:"parameter_set,omitempty"`
	Component         string          `json:"component,omitempty"`
	MessageCount      int             `json:"message_count,omitempty"`
	RunID             string          `json:"run_id"`
	CatalogedAt       time.Time       `json:"cataloged_at"`
}

// NewCatalogEntry builds the entry for an object and its decoded path.
func NewCatalogEntry(obj ObjectMeta, pc PartialCoordinate, runID string) CatalogEntry {
	e := CatalogEntry{
		Path:              obj.Path,
		Size:              obj.Size,
		Version:           pc.Version,
		ReferenceDatetime: pc.ReferenceDatetime,
		EnsembleMember:    pc.EnsembleMember,
		ParameterSet:      pc.ParameterSet,
		Component:         pc.Component,
		RunID:             runID,
		CatalogedAt:       Now(),
	}
	if pc.ForecastStep != nil {
		h := int64(*pc.ForecastStep / time.Hour)
		e.ForecastStepHours = &h
	}
	return e
}
