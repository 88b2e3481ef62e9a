// Package pipeline schedules catalog aggregations.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Aggregation is one full pass over the archive.
type Aggregation interface {
	Run(ctx context.Context) error
}

const (
	defaultInitialBackoff = 5 * time.Second
	defaultMaxBackoff     = 5 * time.Minute
)

// Pipeline re-runs an aggregation on a fixed interval, retrying failed
// passes with exponential backoff.
type Pipeline struct {
	agg            Aggregation
	interval       time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
	clock          clockwork.Clock
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the clock that times the refresh interval.
func WithClock(c clockwork.Clock) Option { return func(p *Pipeline) { p.clock = c } }

// WithBackoff sets the first retry delay and its cap.
func WithBackoff(initial, limit time.Duration) Option {
	return func(p *Pipeline) {
		p.initialBackoff = initial
		p.maxBackoff = limit
	}
}

// New creates a Pipeline. An interval of zero runs the aggregation until it
// first succeeds and then returns.
func New(agg Aggregation, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		agg:            agg,
		interval:       interval,
		logger:         logger,
		metrics:        metrics,
		clock:          clockwork.NewRealClock(),
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loops until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.interval)
	backoff := p.initialBackoff

	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		if err := p.agg.Run(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.metrics.Refreshes.WithLabelValues("error").Inc()
			p.logger.Error("aggregation failed, retrying", "error", err, "backoff", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, p.maxBackoff)
			continue
		}

		p.metrics.Refreshes.WithLabelValues("success").Inc()
		backoff = p.initialBackoff
		if p.interval <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
		case <-p.clock.After(p.interval):
		}
	}
}
