package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/DarkSidr/news/pkg/db"
	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/pipeline"
	"github.com/DarkSidr/news/pkg/translator"
)

// Scheduler runs the periodic fetch-store-translate cycle
type Scheduler struct {
	store      Store
	pipe       Pipeline
	trans      translator.Service
	cache      CacheInvalidator
	interval   time.Duration
	retention  time.Duration
	targetLang string
	budget     int

	wg     sync.WaitGroup
	cancel context.CancelFunc
	runMu  sync.Mutex // one cycle at a time, ticker and trigger endpoint share it
}

// Store is the persistence surface the scheduler needs
type Store interface {
	GetActiveSources(ctx context.Context) ([]domain.FeedSource, error)
	UpsertArticles(ctx context.Context, sourceID int64, items []domain.NewsItem) (int, error)
	PendingTranslations(ctx context.Context, sourceID int64, targetLang string, limit int) ([]db.Article, error)
	SetTranslation(ctx context.Context, id, title, snippet, contentHTML string) error
	UpdateSourceFetched(ctx context.Context, sourceID int64) error
	CreateFetchLog(ctx context.Context, res domain.FetchResult) error
	PruneOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// Pipeline fetches and normalizes all sources
type Pipeline interface {
	RunGrouped(ctx context.Context, sources []domain.FeedSource) []pipeline.SourceResult
}

// CacheInvalidator drops the read-path snapshot before a cycle
type CacheInvalidator interface {
	Invalidate()
}

// Config holds scheduler configuration
type Config struct {
	Interval        time.Duration
	Retention       time.Duration
	TargetLang      string
	TranslateBudget int
}

// New creates a scheduler. Translator may be nil, translation is then skipped.
func New(store Store, pipe Pipeline, trans translator.Service, cache CacheInvalidator, cfg Config) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.Retention == 0 {
		cfg.Retention = db.DefaultRetention
	}
	if cfg.TranslateBudget == 0 {
		cfg.TranslateBudget = 20
	}
	return &Scheduler{
		store:      store,
		pipe:       pipe,
		trans:      trans,
		cache:      cache,
		interval:   cfg.Interval,
		retention:  cfg.Retention,
		targetLang: cfg.TargetLang,
		budget:     cfg.TranslateBudget,
	}
}

// Start begins the periodic worker
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.worker(ctx)

	lgr.Printf("[INFO] scheduler started, interval %v, retention %v", s.interval, s.retention)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// run immediately on start
	if _, err := s.RunNow(ctx); err != nil {
		lgr.Printf("[ERROR] initial fetch cycle failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunNow(ctx); err != nil {
				lgr.Printf("[ERROR] fetch cycle failed: %v", err)
			}
		}
	}
}

// RunNow executes one full cycle: fetch all active sources, store new
// articles, translate within budget, log, prune. Per-source fetch failures
// are recorded and the cycle continues; a storage write failure aborts it.
func (s *Scheduler) RunNow(ctx context.Context) ([]domain.FetchResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.cache.Invalidate()

	sources, err := s.store.GetActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active sources: %w", err)
	}
	if len(sources) == 0 {
		lgr.Printf("[WARN] no active sources configured")
		return []domain.FetchResult{}, nil
	}

	lgr.Printf("[INFO] fetch cycle started, %d sources", len(sources))
	grouped := s.pipe.RunGrouped(ctx, sources)

	results := make([]domain.FetchResult, 0, len(grouped))
	remaining := s.budget

	for i, sr := range grouped {
		res := domain.FetchResult{
			SourceID:   sr.Source.ID,
			SourceName: sr.Source.Name,
			Duration:   sr.Duration,
			DurationMs: sr.Duration.Milliseconds(),
		}

		if sr.Err != nil {
			res.Error = sr.Err.Error()
			results = append(results, res)
			if logErr := s.store.CreateFetchLog(ctx, res); logErr != nil {
				return nil, fmt.Errorf("log fetch for %s: %w", sr.Source.Name, logErr)
			}
			continue
		}

		res.Items = sr.Fetched
		newCount, err := s.store.UpsertArticles(ctx, sr.Source.ID, sr.Items)
		if err != nil {
			return nil, fmt.Errorf("store articles for %s: %w", sr.Source.Name, err)
		}
		res.NewItems = newCount

		allotted := translator.Allot(remaining, len(grouped)-i)
		translated, err := s.translateSource(ctx, sr.Source, allotted)
		if err != nil {
			lgr.Printf("[WARN] translation for %s: %v", sr.Source.Name, err)
		}
		res.Translated = translated
		remaining -= translated

		if err := s.store.UpdateSourceFetched(ctx, sr.Source.ID); err != nil {
			return nil, fmt.Errorf("mark source %s fetched: %w", sr.Source.Name, err)
		}
		if err := s.store.CreateFetchLog(ctx, res); err != nil {
			return nil, fmt.Errorf("log fetch for %s: %w", sr.Source.Name, err)
		}

		lgr.Printf("[INFO] source %s: %d fetched, %d new, %d translated in %v",
			sr.Source.Name, res.Items, res.NewItems, res.Translated, sr.Duration.Round(time.Millisecond))
		results = append(results, res)
	}

	pruned, err := s.store.PruneOlderThan(ctx, s.retention)
	if err != nil {
		return nil, fmt.Errorf("prune old articles: %w", err)
	}
	if pruned > 0 {
		lgr.Printf("[INFO] pruned %d old articles", pruned)
	}

	return results, nil
}
