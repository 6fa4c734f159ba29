package db

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/filters"
)

// DefaultRetention is how long articles are kept before pruning
const DefaultRetention = 14 * 24 * time.Hour

// Page is one page of stored articles after read-path filtering
type Page struct {
	Items   []domain.NewsItem
	Total   int
	HasMore bool
}

// UpsertArticles inserts new articles in one transaction, skipping items
// whose id or link is already stored. Returns the number actually inserted,
// which is how "new items" is counted, as opposed to the fetched count.
func (db *DB) UpsertArticles(ctx context.Context, sourceID int64, items []domain.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	inserted := 0
	retrier := newRetrier()
	err := retrier.Do(ctx, func() error {
		inserted = 0
		txErr := db.InTransaction(ctx, func(tx *sqlx.Tx) error {
			// bare ON CONFLICT covers both the id and the link constraint,
			// a re-fetched article under a changed guid stays a single row
			query := `
				INSERT INTO articles (id, source_id, title, link, pub_date, content, content_snippet, image_url, language)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`
			for _, item := range items {
				res, err := tx.ExecContext(ctx, query,
					item.ID, sourceID, item.Title, item.Link, item.PubDate.UTC(),
					item.Content, item.ContentSnippet, item.ImageURL, item.Language)
				if err != nil {
					return fmt.Errorf("insert article %s: %w", item.ID, err)
				}
				affected, err := res.RowsAffected()
				if err != nil {
					return fmt.Errorf("rows affected: %w", err)
				}
				inserted += int(affected)
			}
			return nil
		})
		if txErr != nil {
			if isLockError(txErr) {
				return txErr // retry
			}
			return &criticalError{err: txErr}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert articles: %w", err)
	}
	return inserted, nil
}

// PruneOlderThan deletes articles published before the horizon and returns
// the number removed. Safe to call repeatedly.
func (db *DB) PruneOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := time.Now().Add(-retention).UTC()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM articles WHERE pub_date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune articles: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(deleted), nil
}

// candidateCount computes how many rows to over-fetch so that post-filtering
// still yields a full page at the requested offset
func candidateCount(offset, limit int) int {
	n := int(math.Ceil(float64(offset+limit)*2.5)) + 50
	if n < 150 {
		n = 150
	}
	return n
}

// ListPage returns one page of articles ordered by pub_date desc, optionally
// restricted to a single source name. Because quality and language filtering
// happen in Go over display text, the query over-fetches candidates and the
// page is sliced after filtering. A final page may come back short when the
// filtered yield is insufficient.
func (db *DB) ListPage(ctx context.Context, offset, limit int, sourceName string, filterCfg filters.Config) (*Page, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 30
	}

	// retention cutoff keeps rows awaiting the next prune out of responses
	query := `
		SELECT a.*, s.name AS source_name
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.pub_date >= ?
	`
	args := []any{time.Now().Add(-db.retention).UTC()}
	if sourceName != "" {
		query += ` AND s.name = ?`
		args = append(args, sourceName)
	}
	query += ` ORDER BY a.pub_date DESC LIMIT ?`
	args = append(args, candidateCount(offset, limit))

	var rows []Article
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	filtered := make([]domain.NewsItem, 0, len(rows))
	for _, row := range rows {
		item := row.ToDomain()
		if !filterCfg.KeepOnRead(item) {
			continue
		}
		filtered = append(filtered, item)
	}

	page := &Page{Total: len(filtered)}
	if offset < len(filtered) {
		end := offset + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		page.Items = filtered[offset:end]
		page.HasMore = end < len(filtered)
	}
	return page, nil
}

// ListRecent returns up to limit articles published after since, newest
// first, without read-path quality filtering. Used by the compact public feed.
func (db *DB) ListRecent(ctx context.Context, limit int, since time.Time) ([]domain.NewsItem, error) {
	query := `
		SELECT a.*, s.name AS source_name
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.pub_date > ?
		ORDER BY a.pub_date DESC
		LIMIT ?
	`
	var rows []Article
	if err := db.conn.SelectContext(ctx, &rows, query, since.UTC(), limit); err != nil {
		return nil, fmt.Errorf("list recent articles: %w", err)
	}
	items := make([]domain.NewsItem, len(rows))
	for i, r := range rows {
		items[i] = r.ToDomain()
	}
	return items, nil
}

// PendingTranslations returns articles of a source that are not yet
// translated and not already in the target language, most recent first
func (db *DB) PendingTranslations(ctx context.Context, sourceID int64, targetLang string, limit int) ([]Article, error) {
	query := `
		SELECT a.*, s.name AS source_name
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.source_id = ? AND a.is_translated = 0 AND a.language != ?
		ORDER BY a.pub_date DESC
		LIMIT ?
	`
	var rows []Article
	if err := db.conn.SelectContext(ctx, &rows, query, sourceID, targetLang, limit); err != nil {
		return nil, fmt.Errorf("pending translations: %w", err)
	}
	return rows, nil
}

// SetTranslation stores translated text for an article and marks it translated
func (db *DB) SetTranslation(ctx context.Context, id, title, snippet, contentHTML string) error {
	retrier := newRetrier()
	return retrier.Do(ctx, func() error {
		query := `
			UPDATE articles
			SET translated_title = ?,
			    translated_snippet = ?,
			    translated_content = ?,
			    is_translated = 1,
			    updated_at = datetime('now')
			WHERE id = ?
		`
		if _, err := db.conn.ExecContext(ctx, query, title, snippet, contentHTML, id); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("set translation: %w", err)}
		}
		return nil
	})
}

// GetStats returns aggregate counts in a single round trip
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM sources) AS sources,
			(SELECT COUNT(*) FROM articles) AS articles,
			(SELECT MAX(pub_date) FROM articles) AS latest_pub_date
	`
	if err := db.conn.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &stats, nil
}
