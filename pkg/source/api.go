package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-pkgz/lgr"

	"github.com/DarkSidr/news/pkg/domain"
)

// apiResponse is the NewsData-style JSON API envelope
type apiResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Results      []apiArticle `json:"results"`
}

// apiArticle is a single article record from a JSON API source
type apiArticle struct {
	ArticleID   string `json:"article_id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PubDate     string `json:"pubDate"`
	ImageURL    string `json:"image_url"`
	Language    string `json:"language"`
}

// fetchAPI retrieves items from a JSON API source. Rate limiting (429) is
// treated as an empty result rather than a failure so a throttled source
// does not pollute the error log every run.
func (f *Fetcher) fetchAPI(ctx context.Context, src domain.FeedSource) ([]domain.RawItem, error) {
	if src.APIKey == "" {
		lgr.Printf("[WARN] no api key configured for %s, skipping", src.Name)
		return nil, nil
	}

	var data apiResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   src.APIKey,
			"category": "technology",
			"language": src.Language,
		}).
		SetResult(&data).
		Get(src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch api source %s: %w", src.Name, err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		lgr.Printf("[WARN] rate limit exceeded for %s", src.Name)
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("api source %s: unexpected status code %d", src.Name, resp.StatusCode())
	}
	if data.Status != "success" {
		return nil, fmt.Errorf("api source %s returned status %q", src.Name, data.Status)
	}

	items := make([]domain.RawItem, 0, len(data.Results))
	for _, a := range data.Results {
		raw := domain.RawItem{
			Title:          a.Title,
			Link:           a.Link,
			GUID:           a.ArticleID,
			PubDate:        a.PubDate,
			Snippet:        a.Description,
			EncodedContent: a.Content,
			EnclosureURL:   a.ImageURL,
		}
		if raw.EncodedContent == "" {
			raw.EncodedContent = a.Description
		}
		items = append(items, raw)
	}
	return items, nil
}
