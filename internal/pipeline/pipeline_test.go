package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/observability"
	"github.com/couchcryptid/grib-catalog/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAggregation struct {
	calls atomic.Int64
	// errs is consumed one per call; later calls succeed.
	errs []error
}

func (m *mockAggregation) Run(_ context.Context) error {
	i := int(m.calls.Add(1) - 1)
	if i < len(m.errs) {
		return m.errs[i]
	}
	return nil
}

// --- tests ---

func TestPipeline_Run_OneShot(t *testing.T) {
	agg := &mockAggregation{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(agg, 0, slog.Default(), metrics)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, int64(1), agg.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("success")), 0)
}

func TestPipeline_Run_RetriesFailures(t *testing.T) {
	agg := &mockAggregation{errs: []error{errors.New("throttled"), errors.New("throttled")}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(agg, 0, slog.Default(), metrics, pipeline.WithBackoff(time.Millisecond, 2*time.Millisecond))

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, int64(3), agg.calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("success")), 0)
}

func TestPipeline_Run_RefreshesOnInterval(t *testing.T) {
	agg := &mockAggregation{}
	clock := clockwork.NewFakeClock()
	p := pipeline.New(agg, time.Hour, slog.Default(), observability.NewMetricsForTesting(), pipeline.WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), agg.calls.Load())

	clock.Advance(time.Hour)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(2), agg.calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestPipeline_Run_StopsOnCancelDuringBackoff(t *testing.T) {
	agg := &mockAggregation{errs: []error{errors.New("down")}}
	p := pipeline.New(agg, 0, slog.Default(), observability.NewMetricsForTesting(), pipeline.WithBackoff(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, int64(1), agg.calls.Load())
}

func TestPipeline_Run_CancelledAggregation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agg := &mockAggregation{errs: []error{context.Canceled}}
	cancel()

	p := pipeline.New(agg, time.Hour, slog.Default(), observability.NewMetricsForTesting())

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, agg.calls.Load())
}
