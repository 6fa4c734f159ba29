// Package source implements per-protocol feed adapters behind a single
// fetch entry point dispatched on the source type.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/DarkSidr/news/pkg/domain"
)

// DefaultTimeout bounds a single source fetch
const DefaultTimeout = 8 * time.Second

// DefaultUserAgent is sent with every outbound fetch
const DefaultUserAgent = "news-app-bot/1.0"

// Fetcher retrieves raw items from feed sources of any supported type
type Fetcher struct {
	timeout   time.Duration
	userAgent string
	client    *resty.Client
}

// NewFetcher creates a fetcher with the given per-source timeout
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		timeout:   timeout,
		userAgent: userAgent,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
	}
}

// Fetch retrieves raw items for a single source, dispatching on its type.
// Inactive sources yield no items and no error.
func (f *Fetcher) Fetch(ctx context.Context, src domain.FeedSource) ([]domain.RawItem, error) {
	if !src.Active {
		return nil, nil
	}

	switch src.Type {
	case domain.SourceRSS:
		return f.fetchRSS(ctx, src)
	case domain.SourceAPI:
		return f.fetchAPI(ctx, src)
	default:
		return nil, fmt.Errorf("unsupported source type %q for %s", src.Type, src.Name)
	}
}

// fetchRSS retrieves and parses an RSS/Atom feed
func (f *Fetcher) fetchRSS(ctx context.Context, src domain.FeedSource) ([]domain.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.UserAgent = f.userAgent

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		raw := domain.RawItem{
			Title:          it.Title,
			Link:           it.Link,
			GUID:           it.GUID,
			PubDate:        it.Published,
			Snippet:        it.Description,
			EncodedContent: it.Content,
		}
		if raw.PubDate == "" {
			raw.PubDate = it.Updated
		}
		if len(it.Enclosures) > 0 {
			raw.EnclosureURL = it.Enclosures[0].URL
		}
		if media, ok := it.Extensions["media"]; ok {
			for _, ext := range media["content"] {
				if u := ext.Attrs["url"]; u != "" {
					raw.MediaURLs = append(raw.MediaURLs, u)
				}
			}
		}
		items = append(items, raw)
	}
	return items, nil
}
