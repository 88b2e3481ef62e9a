package objstore

import (
	"context"
	"sync"

	"github.com/couchcryptid/grib-catalog/internal/observability"
)

// Fetcher reads a whole object.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// CachedFetcher wraps a Fetcher with an in-memory LRU cache keyed by path.
// Failed fetches are not cached.
type CachedFetcher struct {
	inner   Fetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher keeps up to maxEntries objects.
func NewCachedFetcher(inner Fetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if b, ok := c.cache.get(path); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return b, nil
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	b, err := c.inner.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.put(path, b)
	return b, nil
}

// lruCache is a thread-safe LRU of object contents. Callers must not modify
// the returned slices.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	for len(c.entries) > c.maxEntries && c.tail != nil {
		delete(c.entries, c.tail.key)
		c.unlink(c.tail)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}
