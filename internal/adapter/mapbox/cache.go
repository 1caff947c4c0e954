package mapbox

import (
	"context"
	"sync"

	"github.com/couchcryptid/incident-aoi-notifier/internal/observability"
)

// ImageFetcher downloads a rendered map image.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// CachedFetcher wraps an ImageFetcher with an in-memory LRU cache keyed by URL.
// Nested AOIs frequently match the same incidents and so render the same map.
type CachedFetcher struct {
	inner   ImageFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher. metrics may be nil.
func NewCachedFetcher(inner ImageFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if img, ok := c.cache.get(imageURL); ok {
		c.record("hit")
		return img, nil
	}
	c.record("miss")
	img, err := c.inner.FetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	c.cache.put(imageURL, img)
	return img, nil
}

func (c *CachedFetcher) record(result string) {
	if c.metrics != nil {
		c.metrics.MapImageCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache of image bytes.
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

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
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

func (c *lruCache) remove(e *entry) {
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

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
