package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/filters"
)

// pagination bounds for the news endpoint
const (
	newsDefaultLimit = 30
	newsMaxLimit     = 50

	articlesDefaultLimit = 20
	articlesMaxLimit     = 100
	articlesOverFetchCap = 400

	staleCacheThreshold = 30 * time.Minute
)

type newsResponse struct {
	Items   []domain.NewsItem `json:"items"`
	Total   int               `json:"total"`
	HasMore bool              `json:"hasMore"`
}

// newsHandler serves the paginated feed. In persisted mode it reads from the
// store and degrades to the cache-backed live pipeline when the store fails;
// only when both paths fail the client gets a 503.
func (s *Server) newsHandler(w http.ResponseWriter, r *http.Request) {
	offset := intQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := intQuery(r, "limit", newsDefaultLimit)
	if limit < 1 || limit > newsMaxLimit {
		limit = newsDefaultLimit
	}
	source := r.URL.Query().Get("source")

	if s.store != nil {
		page, err := s.store.ListPage(r.Context(), offset, limit, source, s.filters)
		if err == nil {
			RenderJSON(w, r, http.StatusOK, newsResponse{Items: nonNil(page.Items), Total: page.Total, HasMore: page.HasMore})
			return
		}
		lgr.Printf("[WARN] store read failed, falling back to live pipeline: %v", err)
	}

	items, err := s.reader.Latest(r.Context())
	if err != nil {
		RenderError(w, r, fmt.Errorf("news unavailable: %w", err), http.StatusServiceUnavailable)
		return
	}

	filtered := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if source != "" && item.Source != source {
			continue
		}
		// pipeline items passed the write-path gate already, the keyword
		// screen is the read-path addition the store query also applies
		if s.filters.BlockedKeyword(item) {
			continue
		}
		filtered = append(filtered, item)
	}

	resp := newsResponse{Total: len(filtered), Items: []domain.NewsItem{}}
	if offset < len(filtered) {
		end := offset + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		resp.Items = filtered[offset:end]
		resp.HasMore = end < len(filtered)
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// compactArticle is the reduced shape of the public articles feed
type compactArticle struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	TranslatedTitle string    `json:"translated_title,omitempty"`
	Link            string    `json:"link"`
	PubDate         time.Time `json:"pub_date"`
	Source          string    `json:"source"`
	Language        string    `json:"language,omitempty"`
}

// articlesHandler serves the compact public feed: recent articles after an
// optional since cutoff. Language filtering happens after the query, so it
// over-fetches candidates to keep full pages likely.
func (s *Server) articlesHandler(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", articlesDefaultLimit)
	if limit < 1 || limit > articlesMaxLimit {
		limit = articlesDefaultLimit
	}

	since := time.Time{}
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			RenderError(w, r, fmt.Errorf("invalid since, want RFC3339: %w", err), http.StatusBadRequest)
			return
		}
		since = parsed
	}

	var items []domain.NewsItem
	if s.store != nil {
		overFetch := limit * 4
		if overFetch > articlesOverFetchCap {
			overFetch = articlesOverFetchCap
		}
		stored, err := s.store.ListRecent(r.Context(), overFetch, since)
		if err != nil {
			RenderError(w, r, fmt.Errorf("articles unavailable: %w", err), http.StatusServiceUnavailable)
			return
		}
		items = stored
	} else {
		live, err := s.reader.Latest(r.Context())
		if err != nil {
			RenderError(w, r, fmt.Errorf("articles unavailable: %w", err), http.StatusServiceUnavailable)
			return
		}
		for _, item := range live {
			if item.PubDate.After(since) {
				items = append(items, item)
			}
		}
	}

	out := make([]compactArticle, 0, limit)
	for _, item := range items {
		if !filters.AllowedLanguage(item) {
			continue
		}
		ca := compactArticle{
			ID:       item.ID,
			Title:    item.Title,
			Link:     item.Link,
			PubDate:  item.PubDate,
			Source:   item.Source,
			Language: item.Language,
		}
		if item.IsTranslated {
			ca.Title = item.OriginalTitle
			ca.TranslatedTitle = item.Title
			if ca.Title == "" { // translated without a stored original
				ca.Title = item.Title
			}
		}
		out = append(out, ca)
		if len(out) >= limit {
			break
		}
	}
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"articles": out, "count": len(out)})
}

// cronInfoHandler describes the trigger endpoint without running anything
func (s *Server) cronInfoHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{
		"endpoint": "/api/v1/cron/fetch",
		"method":   "POST",
		"auth":     "bearer",
		"enabled":  s.trigger != nil,
	})
}

// cronFetchHandler runs a full fetch cycle, guarded by a bearer token
func (s *Server) cronFetchHandler(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		RenderError(w, r, fmt.Errorf("fetch trigger not available without persistence"), http.StatusNotImplemented)
		return
	}
	if !s.authorized(r) {
		RenderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
		return
	}

	started := time.Now()
	results, err := s.trigger.RunNow(r.Context())
	if err != nil {
		RenderError(w, r, fmt.Errorf("fetch cycle failed: %w", err), http.StatusInternalServerError)
		return
	}

	summary := struct {
		Sources    int   `json:"sources"`
		Fetched    int   `json:"fetched"`
		NewItems   int   `json:"newItems"`
		Translated int   `json:"translated"`
		Failed     int   `json:"failed"`
		DurationMs int64 `json:"durationMs"`
	}{Sources: len(results), DurationMs: time.Since(started).Milliseconds()}

	for _, res := range results {
		summary.Fetched += res.Items
		summary.NewItems += res.NewItems
		summary.Translated += res.Translated
		if res.Error != "" {
			summary.Failed++
		}
	}

	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"results": results, "summary": summary})
}

// authorized validates the bearer token in constant time
func (s *Server) authorized(r *http.Request) bool {
	if s.cronSecret == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}

// healthHandler reports service health. Persisted mode checks the database,
// ephemeral mode reports cache freshness. Degraded state returns 503.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["error"] = fmt.Sprintf("database unreachable: %v", err)
			RenderJSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
		stats, err := s.store.GetStats(ctx)
		if err != nil {
			health["status"] = "degraded"
			health["error"] = fmt.Sprintf("stats failed: %v", err)
			RenderJSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
		health["sources"] = stats.Sources
		health["articles"] = stats.Articles
		if stats.LatestPubDate.Valid {
			health["latestPubDate"] = stats.LatestPubDate.Time.UTC()
		}
		RenderJSON(w, r, http.StatusOK, health)
		return
	}

	age := s.reader.CacheAge()
	health["cacheItems"] = s.reader.CacheLen()
	health["cacheAgeSeconds"] = int(age.Seconds())
	if s.reader.CacheLen() > 0 && age > staleCacheThreshold {
		health["status"] = "degraded"
		RenderJSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	RenderJSON(w, r, http.StatusOK, health)
}

func intQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func nonNil(items []domain.NewsItem) []domain.NewsItem {
	if items == nil {
		return []domain.NewsItem{}
	}
	return items
}
