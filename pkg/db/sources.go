package db

import (
	"context"
	"fmt"

	"github.com/DarkSidr/news/pkg/domain"
)

// EnsureSources seeds the source registry from configuration. Missing sources
// are inserted, existing ones (matched by name) get url, type, language and
// active refreshed. Returns all configured sources with their database ids.
func (db *DB) EnsureSources(ctx context.Context, sources []domain.FeedSource) ([]domain.FeedSource, error) {
	query := `
		INSERT INTO sources (name, url, type, language, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			type = excluded.type,
			language = excluded.language,
			active = excluded.active
	`
	for _, src := range sources {
		if _, err := db.conn.ExecContext(ctx, query, src.Name, src.URL, string(src.Type), src.Language, src.Active); err != nil {
			return nil, fmt.Errorf("ensure source %s: %w", src.Name, err)
		}
	}

	result := make([]domain.FeedSource, 0, len(sources))
	for _, src := range sources {
		var row Source
		if err := db.conn.GetContext(ctx, &row, `SELECT * FROM sources WHERE name = ?`, src.Name); err != nil {
			return nil, fmt.Errorf("get source %s: %w", src.Name, err)
		}
		ds := row.ToDomain()
		ds.APIKey = src.APIKey // keys live in config only, never stored
		db.apiKeys[src.Name] = src.APIKey
		result = append(result, ds)
	}
	return result, nil
}

// GetActiveSources returns all active sources ordered by name
func (db *DB) GetActiveSources(ctx context.Context) ([]domain.FeedSource, error) {
	var rows []Source
	query := `SELECT * FROM sources WHERE active = 1 ORDER BY name`
	if err := db.conn.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get active sources: %w", err)
	}
	sources := make([]domain.FeedSource, len(rows))
	for i, r := range rows {
		sources[i] = r.ToDomain()
		sources[i].APIKey = db.apiKeys[r.Name]
	}
	return sources, nil
}

// UpdateSourceFetched marks a source as fetched now
func (db *DB) UpdateSourceFetched(ctx context.Context, sourceID int64) error {
	retrier := newRetrier()
	return retrier.Do(ctx, func() error {
		query := `UPDATE sources SET last_fetched_at = datetime('now') WHERE id = ?`
		if _, err := db.conn.ExecContext(ctx, query, sourceID); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("update source fetched: %w", err)}
		}
		return nil
	})
}

// CreateFetchLog appends one fetch outcome record
func (db *DB) CreateFetchLog(ctx context.Context, res domain.FetchResult) error {
	retrier := newRetrier()
	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO fetch_logs (source_id, items, new_items, translated, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := db.conn.ExecContext(ctx, query, res.SourceID, res.Items, res.NewItems, res.Translated, res.Error, res.Duration.Milliseconds())
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("create fetch log: %w", err)}
		}
		return nil
	})
}
