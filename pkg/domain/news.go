package domain

import "time"

// SourceType identifies the fetch protocol of a feed source
type SourceType string

// supported source kinds
const (
	SourceRSS SourceType = "rss"
	SourceAPI SourceType = "api"
)

// FeedSource represents a configured origin of articles
type FeedSource struct {
	ID          int64
	Name        string
	URL         string
	Type        SourceType
	Language    string
	Active      bool
	APIKey      string // only for api sources
	LastFetched *time.Time
	CreatedAt   time.Time
}

// RawItem is a source-native record as returned by a source adapter,
// before any normalization. Consumed once by the pipeline.
type RawItem struct {
	Title          string
	Link           string
	GUID           string
	PubDate        string // raw publish timestamp as the source sent it
	Snippet        string // description / plain-ish summary
	Content        string
	EncodedContent string // content:encoded or API full content
	EnclosureURL   string
	MediaURLs      []string // media:content references, in document order
}

// NewsItem is the canonical, normalized, possibly-translated article.
// Title, ContentSnippet and Content hold the display variant: the translated
// text when present and non-empty, otherwise the original. The Original*
// shadow fields are populated only when a translated variant took over.
type NewsItem struct {
	ID                     string    `json:"id"`
	Title                  string    `json:"title"`
	Link                   string    `json:"link"`
	PubDate                time.Time `json:"pubDate"`
	ContentSnippet         string    `json:"contentSnippet"`
	Content                string    `json:"content,omitempty"`
	ImageURL               string    `json:"imageUrl,omitempty"`
	Source                 string    `json:"source"`
	Language               string    `json:"language,omitempty"`
	IsTranslated           bool      `json:"isTranslated,omitempty"`
	OriginalTitle          string    `json:"originalTitle,omitempty"`
	OriginalContentSnippet string    `json:"originalContentSnippet,omitempty"`
	OriginalContent        string    `json:"originalContent,omitempty"`
}

// FetchResult is the per-run, per-source outcome, also persisted as an
// append-only fetch log record
type FetchResult struct {
	SourceID   int64         `json:"sourceId"`
	SourceName string        `json:"sourceName"`
	Items      int           `json:"itemsCount"`
	NewItems   int           `json:"newItemsCount"`
	Translated int           `json:"translatedCount"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
}

// SourceError captures a single source failure inside a pipeline run
type SourceError struct {
	Source string
	Err    error
}

// PipelineStats aggregates counts over one pipeline run
type PipelineStats struct {
	TotalFetched int
	Filtered     int
	Final        int
}

// PipelineResult is the outcome of one ingestion pipeline run
type PipelineResult struct {
	Items  []NewsItem
	Errors []SourceError
	Stats  PipelineStats
}
