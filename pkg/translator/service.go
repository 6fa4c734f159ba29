package translator

import (
	"context"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
)

// DefaultBatchSize is the chunk size the chain splits batches into before
// calling providers. Small chunks keep a single provider failure from
// wasting the whole run.
const DefaultBatchSize = 5

// Provider translates a chunk of texts between two languages. Implementations
// must return exactly one output per input in the same order.
type Provider interface {
	Name() string
	Translate(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error)
}

// Service is the consumer-facing translation contract
type Service interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
	TranslateBatch(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error)
}

// Chain runs a prioritized list of providers. Each chunk is tried against
// providers in order and the first success wins the whole chunk. If every
// provider fails for any chunk the batch call fails.
type Chain struct {
	providers []Provider
	batchSize int
	glossary  []string
}

// NewChain makes a chain over the given providers, in fallback priority order
func NewChain(providers []Provider, batchSize int) *Chain {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Chain{providers: providers, batchSize: batchSize, glossary: TechGlossary}
}

// Translate translates a single text
func (c *Chain) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	res, err := c.TranslateBatch(ctx, []string{text}, fromLang, toLang)
	if err != nil {
		return "", err
	}
	return res[0], nil
}

// TranslateBatch translates texts preserving order. Glossary terms are
// tokenized before providers see the text and restored afterwards. Empty or
// whitespace-only inputs pass through untouched without hitting a provider.
func (c *Chain) TranslateBatch(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no translation providers configured")
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	results := make([]string, len(texts))

	// indexes of texts that actually need a provider call
	var pending []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			results[i] = t
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		protected := make([]string, len(chunk))
		replacements := make([][]Replacement, len(chunk))
		for i, idx := range chunk {
			protected[i], replacements[i] = Protect(texts[idx], c.glossary)
		}

		translated, err := c.translateChunk(ctx, protected, fromLang, toLang)
		if err != nil {
			return nil, fmt.Errorf("translate chunk %d-%d: %w", start, end-1, err)
		}

		for i, idx := range chunk {
			results[idx] = Restore(translated[i], replacements[i])
		}
	}

	return results, nil
}

func (c *Chain) translateChunk(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	var lastErr error
	for _, p := range c.providers {
		translated, err := p.Translate(ctx, texts, fromLang, toLang)
		if err != nil {
			log.Printf("[WARN] provider %s failed: %v", p.Name(), err)
			lastErr = err
			continue
		}
		if len(translated) != len(texts) {
			log.Printf("[WARN] provider %s returned %d results for %d texts", p.Name(), len(translated), len(texts))
			lastErr = fmt.Errorf("provider %s: result count mismatch", p.Name())
			continue
		}
		return translated, nil
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// Allot splits a remaining translation budget evenly over the sources still
// to be processed, always granting at least one slot while budget remains.
func Allot(remaining, sourcesLeft int) int {
	if remaining <= 0 || sourcesLeft <= 0 {
		return 0
	}
	share := remaining / sourcesLeft
	if share < 1 {
		share = 1
	}
	return share
}
