package pipeline

import (
	"sync"
	"time"

	"github.com/DarkSidr/news/pkg/domain"
)

// DefaultCacheTTL is how long a cached pipeline result stays fresh
const DefaultCacheTTL = 5 * time.Minute

// Cache holds the last pipeline result behind an expiry. A single snapshot
// is enough here, readers either get the whole fresh result or nothing.
type Cache struct {
	mu      sync.RWMutex
	items   []domain.NewsItem
	fetched time.Time
	ttl     time.Duration
}

// NewCache makes a cache with the given TTL, non-positive falls back to default
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl}
}

// Get returns the cached items and true if the snapshot is still fresh
func (c *Cache) Get() ([]domain.NewsItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.items == nil || time.Since(c.fetched) > c.ttl {
		return nil, false
	}
	return c.items, true
}

// Set replaces the snapshot and resets the expiry clock
func (c *Cache) Set(items []domain.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.fetched = time.Now()
}

// Invalidate drops the snapshot so the next Get misses
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.fetched = time.Time{}
}

// Age reports time since the snapshot was stored, zero when empty
func (c *Cache) Age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.items == nil {
		return 0
	}
	return time.Since(c.fetched)
}

// Len returns the number of cached items
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
