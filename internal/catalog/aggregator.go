// Package catalog scans an object store for sidecar index files and builds
// the coordinate labels of the archive they describe.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/couchcryptid/grib-catalog/internal/dataset"
	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/couchcryptid/grib-catalog/internal/grib"
	"github.com/couchcryptid/grib-catalog/internal/idx"
	"github.com/couchcryptid/grib-catalog/internal/observability"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/stream"
)

// Lister enumerates objects. List streams every object under prefix;
// ListDir returns one level of a delimiter listing.
type Lister interface {
	List(ctx context.Context, prefix string) iter.Seq2[domain.ObjectMeta, error]
	ListDir(ctx context.Context, prefix string) (domain.Listing, error)
}

// Fetcher reads a whole object.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// EntrySink receives catalog entries in batches.
type EntrySink interface {
	LoadBatch(ctx context.Context, entries []domain.CatalogEntry) error
}

// PathDecoder interprets the paths of one dataset.
type PathDecoder interface {
	Decode(path string) (domain.PartialCoordinate, error)
	DecodeRunPrefix(prefix string) (domain.PartialCoordinate, error)
	RunPrefixDepth() int
}

// ParameterLookup resolves parameter abbreviations.
type ParameterLookup interface {
	LookupByAbbrev(abbrev string) []grib.Entry
}

const (
	DefaultMaxInFlight         = 1000
	DefaultMaxReportedFailures = 100
	DefaultBatchSize           = 50
)

// Aggregator builds coordinate labels from an object store listing.
//
// Discovery lists run directories level by level with a delimiter, then each
// run is listed in full and its index paths are decoded by a bounded worker
// pool. Results are folded by stream callbacks, which run one at a time, so
// the label sets have a single owner.
type Aggregator struct {
	lister  Lister
	decoder PathDecoder
	logger  *slog.Logger
	metrics *observability.Metrics

	fetcher     Fetcher
	parseIndex  bool
	params      ParameterLookup
	sink        EntrySink
	clock       clockwork.Clock
	prefix      string
	extension   string
	maxInFlight int
	batchSize   int
	maxFailures int

	// Owned by Run and its stream callbacks.
	runID    string
	labels   *labelsBuilder
	failures []Failure
	batch    []domain.CatalogEntry
	known    map[string]bool

	counters counters
	result   atomic.Pointer[result]
	ready    atomic.Bool
	running  atomic.Bool
}

type result struct {
	labels domain.CoordLabels
	stats  Stats
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPrefix sets the key prefix under which run directories are listed. It
// must match the decoder's root.
func WithPrefix(prefix string) Option {
	return func(a *Aggregator) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// WithExtension sets the suffix of the files to decode. Defaults to ".idx".
func WithExtension(ext string) Option { return func(a *Aggregator) { a.extension = ext } }

// WithMaxInFlight caps concurrent decode workers.
func WithMaxInFlight(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxInFlight = n
		}
	}
}

// WithIndexParsing fetches every index file through f and folds its records
// into the parameter, level, step and member labels.
func WithIndexParsing(f Fetcher) Option {
	return func(a *Aggregator) {
		a.fetcher = f
		a.parseIndex = f != nil
	}
}

// WithParameters counts index records whose parameter is not in p.
func WithParameters(p ParameterLookup) Option { return func(a *Aggregator) { a.params = p } }

// WithSink publishes a catalog entry for every decoded path, batchSize at a
// time.
func WithSink(s EntrySink, batchSize int) Option {
	return func(a *Aggregator) {
		a.sink = s
		if batchSize > 0 {
			a.batchSize = batchSize
		}
	}
}

// WithClock replaces the clock used for timing.
func WithClock(c clockwork.Clock) Option { return func(a *Aggregator) { a.clock = c } }

// WithMaxReportedFailures bounds how many failing paths Stats retains.
func WithMaxReportedFailures(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.maxFailures = n
		}
	}
}

// New creates an Aggregator over lister, decoding paths with decoder.
func New(lister Lister, decoder PathDecoder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Aggregator {
	a := &Aggregator{
		lister:      lister,
		decoder:     decoder,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		extension:   ".idx",
		maxInFlight: DefaultMaxInFlight,
		batchSize:   DefaultBatchSize,
		maxFailures: DefaultMaxReportedFailures,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CheckReadiness returns nil once an aggregation has completed.
func (a *Aggregator) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errors.New("coordinate labels have not been built yet")
	}
	return nil
}

// Labels returns the labels of the last complete aggregation. Before the
// first one completes it returns whatever a cancelled or failed run folded.
func (a *Aggregator) Labels() domain.CoordLabels {
	if r := a.result.Load(); r != nil {
		return r.labels
	}
	return domain.CoordLabels{}
}

// Stats returns the live counters during a run and the final summary after.
func (a *Aggregator) Stats() Stats {
	if a.running.Load() {
		return a.counters.snapshot()
	}
	if r := a.result.Load(); r != nil {
		return r.stats
	}
	return Stats{}
}

// Run performs one aggregation. Decode and parse failures are counted and
// skipped. A listing error aborts the run and is returned. Cancelling ctx
// stops further listing; results folded so far are kept and ctx.Err() is
// returned.
func (a *Aggregator) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("aggregation already running")
	}
	defer a.running.Store(false)

	a.reset()
	start := a.clock.Now()
	logger := a.logger.With("run_id", a.runID)
	logger.Info("aggregation started", "prefix", a.prefix, "extension", a.extension, "max_in_flight", a.maxInFlight)
	a.metrics.AggregationRunning.Set(1)
	defer a.metrics.AggregationRunning.Set(0)

	runs, err := a.discoverRuns(ctx, logger)
	if err == nil {
		for _, r := range runs {
			if err = ctx.Err(); err != nil {
				break
			}
			if err = a.scanRun(ctx, r, logger); err != nil {
				break
			}
		}
	}
	if err == nil {
		err = ctx.Err()
	}

	a.flush(context.WithoutCancel(ctx), logger)
	labels := a.labels.build()
	if prev := a.result.Load(); err != nil && prev != nil && a.ready.Load() {
		// A completed catalog is not replaced by a partial one.
		labels = prev.labels
	}
	stats := a.counters.snapshot()
	stats.RunID = a.runID
	stats.Duration = a.clock.Since(start)
	stats.Failures = a.failures
	a.result.Store(&result{labels: labels, stats: stats})
	a.observeLabels(labels)
	a.metrics.AggregationDuration.Observe(stats.Duration.Seconds())

	attrs := []any{
		"runs", stats.Runs,
		"listed", stats.Listed,
		"accepted", stats.Accepted,
		"accepted_size", humanize.Bytes(uint64(stats.AcceptedBytes)),
		"skipped", stats.Skipped,
		"decode_failures", stats.DecodeFailures,
		"reference_datetimes", len(labels.ReferenceDatetimes),
		"duration", stats.Duration,
	}
	if n := len(labels.ReferenceDatetimes); n > 0 {
		attrs = append(attrs, "first_run", labels.ReferenceDatetimes[0], "last_run", labels.ReferenceDatetimes[n-1])
	}

	switch {
	case err == nil:
		a.ready.Store(true)
		logger.Info("aggregation finished", attrs...)
		return nil
	case ctx.Err() != nil:
		logger.Info("aggregation cancelled, keeping partial labels", append(attrs, "reason", ctx.Err())...)
		return ctx.Err()
	default:
		logger.Error("aggregation failed", append(attrs, "error", err)...)
		return err
	}
}

func (a *Aggregator) reset() {
	a.runID = uuid.NewString()
	a.labels = newLabelsBuilder()
	a.failures = nil
	a.batch = nil
	a.known = make(map[string]bool)
	a.counters.reset()
}

type runPrefix struct {
	prefix string
	coord  domain.PartialCoordinate
}

// discoverRuns walks the delimiter listing down to the run directories.
func (a *Aggregator) discoverRuns(ctx context.Context, logger *slog.Logger) ([]runPrefix, error) {
	prefixes := []string{a.prefix}
	for depth := 0; depth < a.decoder.RunPrefixDepth(); depth++ {
		var next []string
		for _, p := range prefixes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			listing, err := a.lister.ListDir(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("list %q: %w", p, err)
			}
			next = append(next, listing.Prefixes...)
		}
		prefixes = next
	}

	runs := make([]runPrefix, 0, len(prefixes))
	for _, p := range prefixes {
		pc, err := a.decoder.DecodeRunPrefix(p)
		if err != nil {
			a.recordFailure(logger, p, err)
			continue
		}
		a.labels.addReferenceDatetime(pc.ReferenceDatetime)
		a.counters.runs.Add(1)
		a.metrics.RunsDiscovered.WithLabelValues(pc.Version).Inc()
		runs = append(runs, runPrefix{prefix: p, coord: pc})
	}
	logger.Info("runs discovered", "runs", len(runs), "prefixes", len(prefixes))
	return runs, nil
}

// outcome is what a worker hands back to the folding callback.
type outcome struct {
	obj     domain.ObjectMeta
	coord   domain.PartialCoordinate
	err     error
	records []domain.IndexRecord
	idxErr  error
}

// scanRun streams one run's listing through the decode pool.
func (a *Aggregator) scanRun(ctx context.Context, r runPrefix, logger *slog.Logger) error {
	logger.Debug("scanning run", "prefix", r.prefix, "version", r.coord.Version)

	s := stream.New().WithMaxGoroutines(a.maxInFlight)
	var listErr error
	for obj, err := range a.lister.List(ctx, r.prefix) {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			listErr = fmt.Errorf("list %q: %w", r.prefix, err)
			break
		}
		a.counters.listed.Add(1)
		a.metrics.EntriesListed.Inc()

		if !strings.HasSuffix(obj.Path, a.extension) {
			a.counters.skipped.Add(1)
			a.metrics.EntriesSkipped.Inc()
			continue
		}

		s.Go(func() stream.Callback {
			out := a.process(ctx, obj)
			return func() { a.fold(ctx, out, logger) }
		})
	}
	s.Wait()
	return listErr
}

// process runs on a worker goroutine and must not touch aggregator state.
func (a *Aggregator) process(ctx context.Context, obj domain.ObjectMeta) outcome {
	out := outcome{obj: obj}
	out.coord, out.err = a.decoder.Decode(obj.Path)
	if out.err != nil || !a.parseIndex {
		return out
	}

	b, err := a.fetcher.Fetch(ctx, obj.Path)
	if err != nil {
		out.idxErr = fmt.Errorf("fetch: %w", err)
		return out
	}
	out.records, out.idxErr = idx.Parse(b)
	return out
}

// fold runs in stream callbacks, one at a time.
func (a *Aggregator) fold(ctx context.Context, out outcome, logger *slog.Logger) {
	if out.err != nil {
		a.recordFailure(logger, out.obj.Path, out.err)
		return
	}

	a.counters.accepted.Add(1)
	a.counters.acceptedBytes.Add(out.obj.Size)
	a.metrics.EntriesAccepted.Inc()
	a.labels.addPartial(out.coord)

	if a.parseIndex {
		switch {
		case out.idxErr != nil && ctx.Err() != nil:
		case out.idxErr != nil:
			a.counters.indexFailures.Add(1)
			a.metrics.IndexParseFailures.Inc()
			a.keepFailure(out.obj.Path, "index", out.idxErr)
			logger.Warn("index file unreadable, using path labels only", "path", out.obj.Path, "error", out.idxErr)
		default:
			a.counters.indexParsed.Add(1)
			a.metrics.IndexFilesParsed.Inc()
			for _, rec := range out.records {
				a.labels.addRecord(rec)
				a.checkParameter(rec.Parameter)
			}
		}
	}

	if a.sink == nil {
		return
	}
	entry := domain.NewCatalogEntry(out.obj, out.coord, a.runID)
	entry.MessageCount = len(out.records)
	a.batch = append(a.batch, entry)
	if len(a.batch) >= a.batchSize {
		a.flush(ctx, logger)
	}
}

func (a *Aggregator) checkParameter(abbrev string) {
	if a.params == nil || abbrev == "" {
		return
	}
	known, seen := a.known[abbrev]
	if !seen {
		known = len(a.params.LookupByAbbrev(abbrev)) > 0
		a.known[abbrev] = known
	}
	if !known {
		a.counters.unknownParameters.Add(1)
		a.metrics.UnknownParameters.Inc()
	}
}

func (a *Aggregator) recordFailure(logger *slog.Logger, path string, err error) {
	kind := "other"
	if k, ok := dataset.DecodeErrorKindOf(err); ok {
		kind = string(k)
	}
	a.counters.decodeFailures.Add(1)
	a.metrics.DecodeFailures.WithLabelValues(kind).Inc()
	a.keepFailure(path, kind, err)
	logger.Warn("decode failed, skipping path", "path", path, "kind", kind, "error", err)
}

func (a *Aggregator) keepFailure(path, kind string, err error) {
	if len(a.failures) < a.maxFailures {
		a.failures = append(a.failures, Failure{Path: path, Kind: kind, Error: err.Error()})
	}
}

// flush publishes the pending batch. Sink errors are logged and counted;
// the labels do not depend on the sink.
func (a *Aggregator) flush(ctx context.Context, logger *slog.Logger) {
	if a.sink == nil || len(a.batch) == 0 {
		return
	}
	batch := a.batch
	a.batch = nil
	if err := a.sink.LoadBatch(ctx, batch); err != nil {
		a.metrics.PublishErrors.Inc()
		logger.Error("publish catalog entries failed", "error", err, "batch_size", len(batch))
		return
	}
	a.counters.published.Add(int64(len(batch)))
	a.metrics.EntriesPublished.Add(float64(len(batch)))
}

func (a *Aggregator) observeLabels(l domain.CoordLabels) {
	a.metrics.Labels.WithLabelValues("reference_datetime").Set(float64(len(l.ReferenceDatetimes)))
	a.metrics.Labels.WithLabelValues("ensemble_member").Set(float64(len(l.EnsembleMembers)))
	a.metrics.Labels.WithLabelValues("forecast_step").Set(float64(len(l.ForecastSteps)))
	a.metrics.Labels.WithLabelValues("parameter").Set(float64(len(l.Parameters)))
	a.metrics.Labels.WithLabelValues("vertical_level").Set(float64(len(l.VerticalLevels)))
}
