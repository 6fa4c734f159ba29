package pipeline

import (
	"context"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/DarkSidr/news/pkg/domain"
)

// Reader serves the latest merged feed, hitting the live pipeline only when
// the cache is stale. Used directly in ephemeral mode and as the read
// fallback when the database is unavailable.
type Reader struct {
	pipe    *Pipeline
	cache   *Cache
	sources []domain.FeedSource
}

// NewReader makes a reader over a fixed source list
func NewReader(pipe *Pipeline, cache *Cache, sources []domain.FeedSource) *Reader {
	return &Reader{pipe: pipe, cache: cache, sources: sources}
}

// Latest returns the current merged feed, from cache when fresh. A run where
// every source failed returns an error and leaves the cache untouched, a
// partially failed run is served as-is.
func (r *Reader) Latest(ctx context.Context) ([]domain.NewsItem, error) {
	if items, ok := r.cache.Get(); ok {
		return items, nil
	}

	res := r.pipe.Run(ctx, r.sources)
	if len(res.Items) == 0 && len(res.Errors) == len(r.sources) && len(r.sources) > 0 {
		return nil, fmt.Errorf("all %d sources failed", len(r.sources))
	}
	for _, e := range res.Errors {
		log.Printf("[WARN] source %s failed: %v", e.Source, e.Err)
	}

	r.cache.Set(res.Items)
	return res.Items, nil
}

// Sources exposes the configured source list
func (r *Reader) Sources() []domain.FeedSource { return r.sources }

// InvalidateCache drops the cached snapshot
func (r *Reader) InvalidateCache() { r.cache.Invalidate() }

// CacheAge reports how old the cached snapshot is
func (r *Reader) CacheAge() time.Duration { return r.cache.Age() }

// CacheLen reports the number of cached items
func (r *Reader) CacheLen() int { return r.cache.Len() }
