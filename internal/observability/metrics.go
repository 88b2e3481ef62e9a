package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grib_catalog"

// Metrics holds the Prometheus counters, histograms, and gauges for catalog
// aggregation.
type Metrics struct {
	EntriesListed   prometheus.Counter
	EntriesSkipped  prometheus.Counter
	EntriesAccepted prometheus.Counter
	DecodeFailures  *prometheus.CounterVec // labels: kind
	RunsDiscovered  *prometheus.CounterVec // labels: version

	// Sidecar index parsing.
	IndexFilesParsed   prometheus.Counter
	IndexParseFailures prometheus.Counter
	UnknownParameters  prometheus.Counter

	EntriesPublished prometheus.Counter
	PublishErrors    prometheus.Counter

	AggregationRunning  prometheus.Gauge
	AggregationDuration prometheus.Histogram
	Labels              *prometheus.GaugeVec   // labels: axis
	Refreshes           *prometheus.CounterVec // labels: outcome={success,error}

	// Object store requests.
	StoreRequests *prometheus.CounterVec // labels: op={list,list_dir,fetch}, outcome={success,error}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		EntriesListed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_listed_total",
			Help:      "Total objects returned by storage listings.",
		}),
		EntriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_skipped_total",
			Help:      "Listed objects ignored because they are not sidecar index files.",
		}),
		EntriesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_accepted_total",
			Help:      "Index paths decoded and folded into the coordinate labels.",
		}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Paths that failed to decode, by failed check.",
		}, []string{"kind"}),
		RunsDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_discovered_total",
			Help:      "Forecast runs found by delimiter listing, by schema version.",
		}, []string{"version"}),
		IndexFilesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_files_parsed_total",
			Help:      "Sidecar index files fetched and parsed.",
		}),
		IndexParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_parse_failures_total",
			Help:      "Sidecar index files that could not be fetched or parsed.",
		}),
		UnknownParameters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_parameters_total",
			Help:      "Index records whose parameter abbreviation is not in the parameter database.",
		}),
		EntriesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_published_total",
			Help:      "Catalog entries written to the sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Catalog entry batches the sink rejected.",
		}),
		AggregationRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregation_running",
			Help:      "1 while an aggregation is in progress, 0 otherwise.",
		}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a complete aggregation run.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		Labels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "labels",
			Help:      "Distinct coordinate labels found, by axis.",
		}, []string{"axis"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Scheduled aggregations by outcome.",
		}, []string{"outcome"}),
		StoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Object store requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Index fetch cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EntriesListed,
		m.EntriesSkipped,
		m.EntriesAccepted,
		m.DecodeFailures,
		m.RunsDiscovered,
		m.IndexFilesParsed,
		m.IndexParseFailures,
		m.UnknownParameters,
		m.EntriesPublished,
		m.PublishErrors,
		m.AggregationRunning,
		m.AggregationDuration,
		m.Labels,
		m.Refreshes,
		m.StoreRequests,
		m.FetchCache,
	}
}

// NewMetrics creates and registers all catalog metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
