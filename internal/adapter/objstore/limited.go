package objstore

import (
	"context"
	"iter"

	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/couchcryptid/grib-catalog/internal/observability"
	"golang.org/x/sync/semaphore"
)

// Limited caps the number of store calls in flight and counts their
// outcomes. Listings and fetches draw on separate slots: a List holds its
// listing slot until the iteration ends, and the fetches issued while it
// streams must not wait on it.
type Limited struct {
	inner   Store
	list    *semaphore.Weighted
	fetch   *semaphore.Weighted
	metrics *observability.Metrics
}

// NewLimited allows at most n concurrent listing calls and n concurrent
// fetches to inner. n below 1 is treated as 1.
func NewLimited(inner Store, n int, metrics *observability.Metrics) *Limited {
	n = max(n, 1)
	return &Limited{
		inner:   inner,
		list:    semaphore.NewWeighted(int64(n)),
		fetch:   semaphore.NewWeighted(int64(n)),
		metrics: metrics,
	}
}

func (l *Limited) List(ctx context.Context, prefix string) iter.Seq2[domain.ObjectMeta, error] {
	return func(yield func(domain.ObjectMeta, error) bool) {
		if err := l.list.Acquire(ctx, 1); err != nil {
			yield(domain.ObjectMeta{}, err)
			return
		}
		defer l.list.Release(1)

		for obj, err := range l.inner.List(ctx, prefix) {
			if err != nil {
				l.observe("list", err)
				yield(obj, err)
				return
			}
			if !yield(obj, nil) {
				break
			}
		}
		l.observe("list", nil)
	}
}

func (l *Limited) ListDir(ctx context.Context, prefix string) (domain.Listing, error) {
	if err := l.list.Acquire(ctx, 1); err != nil {
		return domain.Listing{}, err
	}
	defer l.list.Release(1)

	listing, err := l.inner.ListDir(ctx, prefix)
	l.observe("list_dir", err)
	return listing, err
}

func (l *Limited) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := l.fetch.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.fetch.Release(1)

	b, err := l.inner.Fetch(ctx, path)
	l.observe("fetch", err)
	return b, err
}

func (l *Limited) observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	l.metrics.StoreRequests.WithLabelValues(op, outcome).Inc()
}
