package translator

import (
	"fmt"
	"sort"
	"strings"
)

// TechGlossary lists technical terms that must survive translation intact
var TechGlossary = []string{
	"JavaScript",
	"TypeScript",
	"Node.js",
	"React",
	"Svelte",
	"Next.js",
	"Vue",
	"Angular",
	"Docker",
	"Kubernetes",
	"PostgreSQL",
	"Redis",
	"GraphQL",
	"REST API",
	"API",
	"CI/CD",
	"DevOps",
	"GitHub",
	"GitLab",
	"OpenAI",
	"LLM",
	"GPU",
}

// Replacement is a token↔term pair used transiently during one translation call
type Replacement struct {
	Token string
	Term  string
}

// Protect replaces each glossary term in text with a unique positional token
// so providers can't mistranslate or transliterate it. Terms are processed
// longest-first to avoid partial-match corruption, e.g. matching "API"
// inside "REST API".
func Protect(text string, terms []string) (string, []Replacement) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	var replacements []Replacement
	processed := text
	for i, term := range sorted {
		token := fmt.Sprintf("__TECH_TERM_%d__", i)
		replaced := strings.ReplaceAll(processed, term, token)
		if replaced != processed {
			processed = replaced
			replacements = append(replacements, Replacement{Token: token, Term: term})
		}
	}
	return processed, replacements
}

// Restore substitutes protection tokens back to the original term text
func Restore(text string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return text
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.Token, r.Term)
	}
	return text
}
