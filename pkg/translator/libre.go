package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// LibreProvider translates via a LibreTranslate-compatible HTTP API
type LibreProvider struct {
	client *resty.Client
	apiKey string
}

// NewLibreProvider creates a provider for the given LibreTranslate base URL,
// e.g. https://libretranslate.example.com. API key may be empty for open
// instances.
func NewLibreProvider(baseURL, apiKey string, timeout time.Duration) *LibreProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &LibreProvider{client: client, apiKey: apiKey}
}

// Name implements Provider
func (p *LibreProvider) Name() string { return "libretranslate" }

type libreRequest struct {
	Q      any    `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

// libreResponse handles both API shapes: a string for single-text requests
// and an array when q was an array.
type libreResponse struct {
	TranslatedText json.RawMessage `json:"translatedText"`
	Error          string          `json:"error"`
}

// Translate sends the whole chunk as one array request, falling back to
// per-text requests when the instance doesn't support batch input.
func (p *LibreProvider) Translate(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	if len(texts) == 1 {
		res, err := p.translateOne(ctx, texts[0], fromLang, toLang)
		if err != nil {
			return nil, err
		}
		return []string{res}, nil
	}

	results, err := p.translateBatch(ctx, texts, fromLang, toLang)
	if err == nil {
		return results, nil
	}

	// some instances reject array q, retry one by one
	results = make([]string, len(texts))
	for i, text := range texts {
		res, perr := p.translateOne(ctx, text, fromLang, toLang)
		if perr != nil {
			return nil, perr
		}
		results[i] = res
	}
	return results, nil
}

func (p *LibreProvider) translateBatch(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	body, err := p.post(ctx, libreRequest{Q: texts, Source: fromLang, Target: toLang, Format: "text", APIKey: p.apiKey})
	if err != nil {
		return nil, err
	}
	var translated []string
	if err := json.Unmarshal(body.TranslatedText, &translated); err != nil {
		return nil, fmt.Errorf("unexpected batch response shape: %w", err)
	}
	if len(translated) != len(texts) {
		return nil, fmt.Errorf("got %d translations for %d texts", len(translated), len(texts))
	}
	return translated, nil
}

func (p *LibreProvider) translateOne(ctx context.Context, text, fromLang, toLang string) (string, error) {
	body, err := p.post(ctx, libreRequest{Q: text, Source: fromLang, Target: toLang, Format: "text", APIKey: p.apiKey})
	if err != nil {
		return "", err
	}
	var translated string
	if err := json.Unmarshal(body.TranslatedText, &translated); err != nil {
		return "", fmt.Errorf("unexpected response shape: %w", err)
	}
	return translated, nil
}

func (p *LibreProvider) post(ctx context.Context, req libreRequest) (*libreResponse, error) {
	var res libreResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&res).
		SetError(&res).
		Post("/translate")
	if err != nil {
		return nil, fmt.Errorf("libretranslate request: %w", err)
	}
	if resp.IsError() {
		if res.Error != "" {
			return nil, fmt.Errorf("libretranslate: %s (status %d)", res.Error, resp.StatusCode())
		}
		return nil, fmt.Errorf("libretranslate: unexpected status %d", resp.StatusCode())
	}
	return &res, nil
}
