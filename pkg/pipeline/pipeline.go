package pipeline

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/filters"
	"github.com/DarkSidr/news/pkg/normalize"
)

// SnippetMaxRunes caps the plain-text snippet length for list views
const SnippetMaxRunes = 300

// Fetcher retrieves raw items for a single source
type Fetcher interface {
	Fetch(ctx context.Context, src domain.FeedSource) ([]domain.RawItem, error)
}

// SourceResult holds one source's normalized, filtered items from a grouped
// run. Fetched counts items before the quality and language screens.
type SourceResult struct {
	Source   domain.FeedSource
	Items    []domain.NewsItem
	Fetched  int
	Err      error
	Duration time.Duration
}

// Pipeline fetches sources concurrently and normalizes items into NewsItems
type Pipeline struct {
	fetcher     Fetcher
	filters     filters.Config
	concurrency int
}

// New creates a pipeline, concurrency caps simultaneous source fetches
func New(fetcher Fetcher, filterCfg filters.Config, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Pipeline{fetcher: fetcher, filters: filterCfg, concurrency: concurrency}
}

// RunGrouped fetches all sources concurrently and returns per-source batches
// in the same order sources were given. Individual source failures are
// recorded on their SourceResult and never abort the run.
func (p *Pipeline) RunGrouped(ctx context.Context, sources []domain.FeedSource) []SourceResult {
	results := make([]SourceResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			raw, err := p.fetcher.Fetch(gctx, src)
			res := SourceResult{Source: src, Duration: time.Since(start)}
			if err != nil {
				log.Printf("[WARN] fetch %s: %v", src.Name, err)
				res.Err = err
			} else {
				all := p.transform(src, raw)
				res.Fetched = len(all)
				res.Items = make([]domain.NewsItem, 0, len(all))
				for _, item := range all {
					if p.filters.Keep(item) {
						res.Items = append(res.Items, item)
					}
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures live on results

	return results
}

// Run fetches all sources, filters items, and returns one merged list sorted
// by publication date, newest first.
func (p *Pipeline) Run(ctx context.Context, sources []domain.FeedSource) domain.PipelineResult {
	grouped := p.RunGrouped(ctx, sources)

	var merged []domain.NewsItem
	var errs []domain.SourceError
	totalFetched := 0

	for _, res := range grouped {
		if res.Err != nil {
			errs = append(errs, domain.SourceError{Source: res.Source.Name, Err: res.Err})
			continue
		}
		totalFetched += res.Fetched
		merged = append(merged, res.Items...)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].PubDate.After(merged[j].PubDate) })

	return domain.PipelineResult{
		Items:  merged,
		Errors: errs,
		Stats: domain.PipelineStats{
			TotalFetched: totalFetched,
			Filtered:     totalFetched - len(merged),
			Final:        len(merged),
		},
	}
}

// transform converts raw feed items to display items for one source
func (p *Pipeline) transform(src domain.FeedSource, raw []domain.RawItem) []domain.NewsItem {
	items := make([]domain.NewsItem, 0, len(raw))
	for i, r := range raw {
		content := r.EncodedContent
		if content == "" {
			content = r.Content
		}
		if content == "" {
			content = r.Snippet
		}

		imageURL := normalize.ExtractImage(r)
		content = normalize.StripReadMoreLinks(content)
		if imageURL != "" {
			content = normalize.RemoveEmbeddedImage(content, imageURL)
		}

		item := domain.NewsItem{
			ID:             normalize.BuildID(src.Name, r, i),
			Title:          normalize.StripHTML(r.Title),
			Link:           r.Link,
			PubDate:        normalize.NormalizePubDate(r.PubDate),
			Content:        normalize.SanitizeContent(content),
			ContentSnippet: truncateRunes(normalize.StripHTML(r.Snippet), SnippetMaxRunes),
			ImageURL:       imageURL,
			Source:         src.Name,
			Language:       src.Language,
		}
		if item.ContentSnippet == "" {
			item.ContentSnippet = truncateRunes(normalize.StripHTML(content), SnippetMaxRunes)
		}
		items = append(items, item)
	}
	return items
}

func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
