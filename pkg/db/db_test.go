package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/filters"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?cache=shared&mode=rwc"
	database, err := New(Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func seedSource(t *testing.T, database *DB, name string) domain.FeedSource {
	t.Helper()
	sources, err := database.EnsureSources(context.Background(), []domain.FeedSource{
		{Name: name, URL: "https://" + name + ".example.com/rss", Type: domain.SourceRSS, Language: "en", Active: true},
	})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	return sources[0]
}

func testItem(id string, pubDate time.Time) domain.NewsItem {
	return domain.NewsItem{
		ID:             id,
		Title:          "Title " + id,
		Link:           "https://example.com/" + id,
		PubDate:        pubDate,
		Content:        "<p>" + strings.Repeat("long enough article body text ", 4) + "</p>",
		ContentSnippet: "snippet for " + id,
		Language:       "en",
	}
}

func TestDB_EnsureSources(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	t.Run("insert and ids assigned", func(t *testing.T) {
		sources, err := database.EnsureSources(ctx, []domain.FeedSource{
			{Name: "alpha", URL: "https://alpha.example.com/rss", Type: domain.SourceRSS, Language: "en", Active: true},
			{Name: "beta", URL: "https://beta.example.com/rss", Type: domain.SourceAPI, Language: "de", Active: false, APIKey: "key-1"},
		})
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.NotZero(t, sources[0].ID)
		assert.NotZero(t, sources[1].ID)
		assert.Equal(t, "key-1", sources[1].APIKey, "api key must come back from config, not storage")
	})

	t.Run("reseed updates existing", func(t *testing.T) {
		sources, err := database.EnsureSources(ctx, []domain.FeedSource{
			{Name: "alpha", URL: "https://alpha.example.com/feed.xml", Type: domain.SourceRSS, Language: "ru", Active: false},
		})
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "https://alpha.example.com/feed.xml", sources[0].URL)
		assert.Equal(t, "ru", sources[0].Language)
		assert.False(t, sources[0].Active)
	})

	t.Run("active sources excludes disabled", func(t *testing.T) {
		active, err := database.GetActiveSources(ctx)
		require.NoError(t, err)
		require.Len(t, active, 0) // alpha disabled above, beta seeded inactive
	})

	t.Run("active sources carry config api keys", func(t *testing.T) {
		_, err := database.EnsureSources(ctx, []domain.FeedSource{
			{Name: "beta", URL: "https://beta.example.com/rss", Type: domain.SourceAPI, Language: "de", Active: true, APIKey: "key-1"},
		})
		require.NoError(t, err)

		active, err := database.GetActiveSources(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "key-1", active[0].APIKey)
	})
}

func TestDB_UpsertArticles(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	src := seedSource(t, database, "alpha")

	now := time.Now().UTC().Truncate(time.Second)
	items := []domain.NewsItem{testItem("a1", now), testItem("a2", now.Add(-time.Hour))}

	inserted, err := database.UpsertArticles(ctx, src.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	t.Run("duplicates skipped, new counted", func(t *testing.T) {
		again := append(items, testItem("a3", now.Add(-2*time.Hour)))
		inserted, err := database.UpsertArticles(ctx, src.ID, again)
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})

	t.Run("same link under a new id stays one row", func(t *testing.T) {
		regen := testItem("a1-regen", now)
		regen.Link = "https://example.com/a1" // same article, guid format changed upstream
		inserted, err := database.UpsertArticles(ctx, src.ID, []domain.NewsItem{regen})
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)

		var count int
		err = database.conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM articles WHERE link = ?`, "https://example.com/a1")
		require.NoError(t, err)
		assert.Equal(t, 1, count, "duplicate link must not create a second row")
	})

	t.Run("empty batch", func(t *testing.T) {
		inserted, err := database.UpsertArticles(ctx, src.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)
	})
}

func TestDB_ListPage(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	src := seedSource(t, database, "alpha")

	now := time.Now().UTC().Truncate(time.Second)
	items := make([]domain.NewsItem, 10)
	for i := range items {
		items[i] = testItem(fmt.Sprintf("a%02d", i), now.Add(-time.Duration(i)*time.Hour))
	}
	_, err := database.UpsertArticles(ctx, src.ID, items)
	require.NoError(t, err)

	cfg := filters.Config{MinContentLength: 50}

	t.Run("first page newest first", func(t *testing.T) {
		page, err := database.ListPage(ctx, 0, 3, "", cfg)
		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		assert.Equal(t, "a00", page.Items[0].ID)
		assert.Equal(t, "a01", page.Items[1].ID)
		assert.Equal(t, 10, page.Total)
		assert.True(t, page.HasMore)
	})

	t.Run("offset into middle", func(t *testing.T) {
		page, err := database.ListPage(ctx, 8, 5, "", cfg)
		require.NoError(t, err)
		require.Len(t, page.Items, 2) // short final page
		assert.Equal(t, "a08", page.Items[0].ID)
		assert.False(t, page.HasMore)
	})

	t.Run("offset beyond end", func(t *testing.T) {
		page, err := database.ListPage(ctx, 100, 5, "", cfg)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasMore)
	})

	t.Run("source filter", func(t *testing.T) {
		page, err := database.ListPage(ctx, 0, 5, "nosuch", cfg)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 0, page.Total)
	})

	t.Run("rows past retention excluded before prune", func(t *testing.T) {
		_, err := database.UpsertArticles(ctx, src.ID, []domain.NewsItem{
			testItem("expired", now.Add(-20*24*time.Hour)),
		})
		require.NoError(t, err)

		page, err := database.ListPage(ctx, 0, 20, "", cfg)
		require.NoError(t, err)
		assert.Equal(t, 10, page.Total)
		for _, item := range page.Items {
			assert.NotEqual(t, "expired", item.ID)
		}
	})

	t.Run("blocked keyword removed on read", func(t *testing.T) {
		blocked := cfg
		blocked.BlockedKeywords = []string{"title a00"}
		page, err := database.ListPage(ctx, 0, 20, "", blocked)
		require.NoError(t, err)
		assert.Equal(t, 9, page.Total)
		for _, item := range page.Items {
			assert.NotEqual(t, "a00", item.ID)
		}
	})
}

func TestCandidateCount(t *testing.T) {
	assert.Equal(t, 150, candidateCount(0, 30))   // floor at 150
	assert.Equal(t, 175, candidateCount(0, 50))   // 125+50
	assert.Equal(t, 425, candidateCount(100, 50)) // 375+50
}

func TestDB_PruneOlderThan(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	src := seedSource(t, database, "alpha")

	now := time.Now().UTC()
	_, err := database.UpsertArticles(ctx, src.ID, []domain.NewsItem{
		testItem("fresh", now.Add(-time.Hour)),
		testItem("stale", now.Add(-15*24*time.Hour)),
		testItem("ancient", time.Unix(0, 0).UTC()),
	})
	require.NoError(t, err)

	deleted, err := database.PruneOlderThan(ctx, 14*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	t.Run("idempotent", func(t *testing.T) {
		deleted, err := database.PruneOlderThan(ctx, 14*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})
}

func TestDB_Translations(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	src := seedSource(t, database, "alpha")

	now := time.Now().UTC().Truncate(time.Second)
	older := testItem("en-old", now.Add(-time.Hour))
	newer := testItem("en-new", now)
	native := testItem("ru-1", now)
	native.Language = "ru"

	_, err := database.UpsertArticles(ctx, src.ID, []domain.NewsItem{older, newer, native})
	require.NoError(t, err)

	t.Run("pending excludes target language, newest first", func(t *testing.T) {
		pending, err := database.PendingTranslations(ctx, src.ID, "ru", 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "en-new", pending[0].ID)
		assert.Equal(t, "en-old", pending[1].ID)
	})

	t.Run("limit respected", func(t *testing.T) {
		pending, err := database.PendingTranslations(ctx, src.ID, "ru", 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
	})

	t.Run("set translation flips display precedence", func(t *testing.T) {
		body := "<p>" + strings.Repeat("достаточно длинный переведённый текст статьи ", 3) + "</p>"
		err := database.SetTranslation(ctx, "en-new", "Переведённый заголовок", "сниппет", body)
		require.NoError(t, err)

		pending, err := database.PendingTranslations(ctx, src.ID, "ru", 10)
		require.NoError(t, err)
		require.Len(t, pending, 1, "translated article no longer pending")

		page, err := database.ListPage(ctx, 0, 10, "", filters.Config{})
		require.NoError(t, err)
		var got *domain.NewsItem
		for i := range page.Items {
			if page.Items[i].ID == "en-new" {
				got = &page.Items[i]
			}
		}
		require.NotNil(t, got)
		assert.True(t, got.IsTranslated)
		assert.Equal(t, "Переведённый заголовок", got.Title)
		assert.Equal(t, "Title en-new", got.OriginalTitle)
		assert.Contains(t, got.Content, "переведённый текст")
	})
}

func TestDB_ListRecent(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	src := seedSource(t, database, "alpha")

	now := time.Now().UTC().Truncate(time.Second)
	_, err := database.UpsertArticles(ctx, src.ID, []domain.NewsItem{
		testItem("new", now),
		testItem("old", now.Add(-48*time.Hour)),
	})
	require.NoError(t, err)

	items, err := database.ListRecent(ctx, 10, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
	assert.Equal(t, "alpha", items[0].Source)
}

func TestDB_GetStats(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	t.Run("empty database", func(t *testing.T) {
		stats, err := database.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Sources)
		assert.Equal(t, 0, stats.Articles)
		assert.False(t, stats.LatestPubDate.Valid)
	})

	t.Run("with data", func(t *testing.T) {
		src := seedSource(t, database, "alpha")
		now := time.Now().UTC().Truncate(time.Second)
		_, err := database.UpsertArticles(ctx, src.ID, []domain.NewsItem{testItem("a1", now)})
		require.NoError(t, err)

		stats, err := database.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Sources)
		assert.Equal(t, 1, stats.Articles)
		require.True(t, stats.LatestPubDate.Valid)
	})
}

func TestDB_FetchLogAndSourceFetched(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	src := seedSource(t, database, "alpha")

	err := database.CreateFetchLog(ctx, domain.FetchResult{
		SourceID: src.ID, SourceName: src.Name, Items: 5, NewItems: 2, Translated: 1, Duration: 1200 * time.Millisecond,
	})
	require.NoError(t, err)

	var logRow FetchLog
	err = database.conn.GetContext(ctx, &logRow, `SELECT * FROM fetch_logs WHERE source_id = ?`, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, logRow.Items)
	assert.Equal(t, 2, logRow.NewItems)
	assert.Equal(t, int64(1200), logRow.DurationMs)

	require.NoError(t, database.UpdateSourceFetched(ctx, src.ID))
	var row Source
	err = database.conn.GetContext(ctx, &row, `SELECT * FROM sources WHERE id = ?`, src.ID)
	require.NoError(t, err)
	assert.True(t, row.LastFetchedAt.Valid)
}
