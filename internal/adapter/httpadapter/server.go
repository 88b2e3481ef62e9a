// Package httpadapter serves health, metrics and catalog queries over HTTP.
package httpadapter

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/adapter/objstore"
	"github.com/couchcryptid/grib-catalog/internal/catalog"
	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/couchcryptid/grib-catalog/internal/idx"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog is the aggregation state the server reports.
type Catalog interface {
	sharedobs.ReadinessChecker
	Labels() domain.CoordLabels
	Stats() catalog.Stats
}

// ParameterIndex answers parameter lookups.
type ParameterIndex interface {
	LookupByAbbrev(abbrev string) []grib.Entry
	AbbrevsWithPrefix(prefix string) []string
}

// Server exposes health, readiness, metrics and catalog endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	catalog    Catalog
	params     ParameterIndex
	fetcher    catalog.Fetcher
}

// Option configures optional endpoints.
type Option func(*Server)

// WithParameters enables GET /v1/parameters.
func WithParameters(p ParameterIndex) Option { return func(s *Server) { s.params = p } }

// WithFetcher enables GET /v1/messages.
func WithFetcher(f catalog.Fetcher) Option { return func(s *Server) { s.fetcher = f } }

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 catalog routes.
func NewServer(addr string, cat Catalog, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		catalog: cat,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(cat))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/labels", s.handleLabels)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/parameters", s.handleParameters)
	mux.HandleFunc("GET /v1/messages", s.handleMessages)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type labelsResponse struct {
	ReferenceDatetimes []time.Time `json:"reference_datetimes"`
	EnsembleMembers    []string    `json:"ensemble_members"`
	ForecastStepHours  []float64   `json:"forecast_step_hours"`
	Parameters         []string    `json:"parameters"`
	VerticalLevels     []string    `json:"vertical_levels"`
}

func (s *Server) handleLabels(w http.ResponseWriter, _ *http.Request) {
	l := s.catalog.Labels()
	resp := labelsResponse{
		ReferenceDatetimes: nonNil(l.ReferenceDatetimes),
		EnsembleMembers:    make([]string, 0, len(l.EnsembleMembers)),
		ForecastStepHours:  make([]float64, 0, len(l.ForecastSteps)),
		Parameters:         nonNil(l.Parameters),
		VerticalLevels:     nonNil(l.VerticalLevels),
	}
	for _, m := range l.EnsembleMembers {
		resp.EnsembleMembers = append(resp.EnsembleMembers, m.String())
	}
	for _, d := range l.ForecastSteps {
		resp.ForecastStepHours = append(resp.ForecastStepHours, d.Hours())
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.catalog.Stats())
}

type parameterResponse struct {
	ID                 string `json:"id"`
	ProductDiscipline  uint8  `json:"product_discipline"`
	ParameterCategory  uint8  `json:"parameter_category"`
	ParameterNumber    uint8  `json:"parameter_number"`
	MasterTableVersion uint8  `json:"master_table_version"`
	OriginatingCenter  uint16 `json:"originating_center"`
	Subcenter          uint8  `json:"subcenter"`
	LocalTableVersion  uint8  `json:"local_table_version"`
	Abbrev             string `json:"abbrev"`
	Name               string `json:"name"`
	Unit               string `json:"unit"`
}

// handleParameters serves ?abbrev=TMP (every parameter using the
// abbreviation) or ?prefix=TM (matching abbreviations).
func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	if s.params == nil {
		writeError(w, http.StatusNotFound, "parameter tables are not loaded")
		return
	}
	q := r.URL.Query()
	switch {
	case q.Has("abbrev"):
		entries := s.params.LookupByAbbrev(q.Get("abbrev"))
		resp := make([]parameterResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, parameterResponse{
				ID:                 e.ID.String(),
				ProductDiscipline:  e.ID.ProductDiscipline(),
				ParameterCategory:  e.ID.ParameterCategory(),
				ParameterNumber:    e.ID.ParameterNumber(),
				MasterTableVersion: e.ID.MasterTableVersion(),
				OriginatingCenter:  e.ID.OriginatingCenter(),
				Subcenter:          e.ID.Subcenter(),
				LocalTableVersion:  e.ID.LocalTableVersion(),
				Abbrev:             e.Parameter.Abbrev,
				Name:               e.Parameter.Name,
				Unit:               e.Parameter.Unit,
			})
		}
		sharedobs.WriteJSON(w, http.StatusOK, resp)
	case q.Has("prefix"):
		sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{
			"abbrevs": nonNil(s.params.AbbrevsWithPrefix(q.Get("prefix"))),
		})
	default:
		writeError(w, http.StatusBadRequest, "one of abbrev or prefix is required")
	}
}

type messageResponse struct {
	MessageID         uint32  `json:"message_id"`
	Parameter         string  `json:"parameter"`
	VerticalLevel     string  `json:"vertical_level"`
	ForecastStepHours float64 `json:"forecast_step_hours"`
	EnsembleMember    string  `json:"ensemble_member,omitempty"`
	Path              string  `json:"path"`
	Offset            uint64  `json:"offset"`
	Length            int64   `json:"length"`
}

// handleMessages reads the index file at ?path= and returns the byte range
// of each message in its data file, optionally filtered by ?parameter= and
// ?level=.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		writeError(w, http.StatusNotFound, "object store is not configured")
		return
	}
	q := r.URL.Query()
	path := q.Get("path")
	if !strings.HasSuffix(path, ".idx") {
		writeError(w, http.StatusBadRequest, "path must name a .idx file")
		return
	}
	if !fs.ValidPath(path) {
		writeError(w, http.StatusBadRequest, "path must be a clean relative key")
		return
	}

	b, err := s.fetcher.Fetch(r.Context(), path)
	switch {
	case errors.Is(err, objstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("fetch index file failed", "path", path, "error", err)
		writeError(w, http.StatusBadGateway, "fetch index file failed")
		return
	}
	records, err := idx.Parse(b)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	locs := idx.Locations(strings.TrimSuffix(path, ".idx"), 0, records)
	resp := make([]messageResponse, 0, len(records))
	for i, rec := range records {
		if p := q.Get("parameter"); p != "" && rec.Parameter != p {
			continue
		}
		if l := q.Get("level"); l != "" && rec.VerticalLevel != l {
			continue
		}
		m := messageResponse{
			MessageID:         rec.MessageID,
			Parameter:         rec.Parameter,
			VerticalLevel:     rec.VerticalLevel,
			ForecastStepHours: rec.ForecastStep.Hours(),
			Path:              locs[i].Path,
			Offset:            locs[i].Offset,
			Length:            locs[i].Length,
		}
		if rec.EnsembleMember != nil {
			m.EnsembleMember = rec.EnsembleMember.String()
		}
		resp = append(resp, m)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
