package scheduler

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/normalize"
	"github.com/DarkSidr/news/pkg/translator"
)

// translateSource translates up to budget pending articles of one source.
// Sources already in the target language never have pending rows, the query
// excludes them. Returns the number of articles fully translated and stored.
func (s *Scheduler) translateSource(ctx context.Context, src domain.FeedSource, budget int) (int, error) {
	if s.trans == nil || budget <= 0 || s.targetLang == "" {
		return 0, nil
	}
	if src.Language == s.targetLang {
		return 0, nil
	}

	pending, err := s.store.PendingTranslations(ctx, src.ID, s.targetLang, budget)
	if err != nil {
		return 0, fmt.Errorf("load pending: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	titles := make([]string, len(pending))
	snippets := make([]string, len(pending))
	contents := make([]string, len(pending))
	for i, a := range pending {
		titles[i] = a.Title
		snippets[i] = a.ContentSnippet
		contents[i] = normalize.StripHTML(a.Content)
	}

	from := src.Language
	trTitles, err := s.trans.TranslateBatch(ctx, titles, from, s.targetLang)
	if err != nil {
		return 0, fmt.Errorf("translate titles: %w", err)
	}
	trSnippets, err := s.trans.TranslateBatch(ctx, snippets, from, s.targetLang)
	if err != nil {
		return 0, fmt.Errorf("translate snippets: %w", err)
	}
	trContents, err := s.trans.TranslateBatch(ctx, contents, from, s.targetLang)
	if err != nil {
		return 0, fmt.Errorf("translate contents: %w", err)
	}

	done := 0
	for i, a := range pending {
		// a title must always come back, snippet and content only when the
		// original had one
		if trTitles[i] == "" || (snippets[i] != "" && trSnippets[i] == "") || (contents[i] != "" && trContents[i] == "") {
			lgr.Printf("[WARN] incomplete translation for article %s, skipped", a.ID)
			continue
		}
		contentHTML := ""
		if trContents[i] != "" {
			contentHTML = translator.TextToHTML(trContents[i])
		}
		if err := s.store.SetTranslation(ctx, a.ID, trTitles[i], trSnippets[i], contentHTML); err != nil {
			return done, fmt.Errorf("store translation for %s: %w", a.ID, err)
		}
		done++
	}
	return done, nil
}
