package db

import (
	"database/sql"
	"time"

	"github.com/DarkSidr/news/pkg/domain"
)

// Source represents a feed source row
type Source struct {
	ID            int64        `db:"id"`
	Name          string       `db:"name"`
	URL           string       `db:"url"`
	Type          string       `db:"type"`
	Language      string       `db:"language"`
	Active        bool         `db:"active"`
	LastFetchedAt sql.NullTime `db:"last_fetched_at"`
	CreatedAt     time.Time    `db:"created_at"`
}

// ToDomain converts a source row to the domain representation
func (s *Source) ToDomain() domain.FeedSource {
	src := domain.FeedSource{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		Type:      domain.SourceType(s.Type),
		Language:  s.Language,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
	}
	if s.LastFetchedAt.Valid {
		t := s.LastFetchedAt.Time
		src.LastFetched = &t
	}
	return src
}

// Article represents a stored article row. Original text lives in title,
// content_snippet and content; translated_* columns are filled by the
// translation pass and empty until then.
type Article struct {
	ID                string    `db:"id"`
	SourceID          int64     `db:"source_id"`
	Title             string    `db:"title"`
	Link              string    `db:"link"`
	PubDate           time.Time `db:"pub_date"`
	Content           string    `db:"content"`
	ContentSnippet    string    `db:"content_snippet"`
	ImageURL          string    `db:"image_url"`
	Language          string    `db:"language"`
	TranslatedTitle   string    `db:"translated_title"`
	TranslatedSnippet string    `db:"translated_snippet"`
	TranslatedContent string    `db:"translated_content"`
	IsTranslated      bool      `db:"is_translated"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`

	SourceName string `db:"source_name"` // joined from sources
}

// ToDomain converts an article row to the display item, applying translated
// precedence: translated fields take over the display slots and the original
// text moves to the Original* shadows.
func (a *Article) ToDomain() domain.NewsItem {
	item := domain.NewsItem{
		ID:             a.ID,
		Title:          a.Title,
		Link:           a.Link,
		PubDate:        a.PubDate,
		Content:        a.Content,
		ContentSnippet: a.ContentSnippet,
		ImageURL:       a.ImageURL,
		Source:         a.SourceName,
		Language:       a.Language,
	}
	if a.TranslatedTitle != "" {
		item.OriginalTitle = a.Title
		item.Title = a.TranslatedTitle
		item.IsTranslated = true
	}
	if a.TranslatedSnippet != "" {
		item.OriginalContentSnippet = a.ContentSnippet
		item.ContentSnippet = a.TranslatedSnippet
		item.IsTranslated = true
	}
	if a.TranslatedContent != "" {
		item.OriginalContent = a.Content
		item.Content = a.TranslatedContent
		item.IsTranslated = true
	}
	return item
}

// FetchLog is one append-only record of a source fetch
type FetchLog struct {
	ID         int64     `db:"id"`
	SourceID   int64     `db:"source_id"`
	Items      int       `db:"items"`
	NewItems   int       `db:"new_items"`
	Translated int       `db:"translated"`
	Error      string    `db:"error"`
	DurationMs int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Stats is an aggregate snapshot for the health endpoint
type Stats struct {
	Sources       int          `db:"sources"`
	Articles      int          `db:"articles"`
	LatestPubDate sql.NullTime `db:"latest_pub_date"`
}
