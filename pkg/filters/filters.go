// Package filters implements quality, language and domain screening of
// normalized news items.
package filters

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/normalize"
)

// DefaultMinContentLength is the threshold below which content without an
// image is treated as a stub
const DefaultMinContentLength = 50

// disallowedScripts lists writing systems the service does not serve.
// Any single rune from these rejects the whole item, even when Latin
// words are mixed in.
var disallowedScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	unicode.Thai,
	unicode.Arabic,
	unicode.Hebrew,
	unicode.Devanagari,
	unicode.Bengali,
	unicode.Tamil,
	unicode.Telugu,
	unicode.Gujarati,
	unicode.Gurmukhi,
	unicode.Georgian,
	unicode.Armenian,
	unicode.Myanmar,
}

// Config holds tunable filter settings
type Config struct {
	MinContentLength  int
	ImageExemptsShort bool
	BlockedDomains    []string
	BlockedKeywords   []string
}

// LowQuality reports whether an item is a stub or teaser not worth serving.
// Check order is fixed: empty content, the "Comments" placeholder,
// content identical to the title, then short content without an image.
func (c Config) LowQuality(item domain.NewsItem) bool {
	content := normalize.StripHTML(item.Content)
	if content == "" {
		return true
	}
	if strings.EqualFold(content, "comments") {
		return true
	}

	minLen := c.MinContentLength
	if minLen <= 0 {
		minLen = DefaultMinContentLength
	}
	hasImage := c.ImageExemptsShort && item.ImageURL != ""

	if content == strings.TrimSpace(item.Title) && !hasImage {
		return true
	}
	if utf8.RuneCountInString(content) < minLen && !hasImage {
		return true
	}
	return false
}

// AllowedLanguage reports whether the item's combined display text is in a
// served script. Empty text and text with zero script-bearing characters
// (pure digits or punctuation) are rejected.
func AllowedLanguage(item domain.NewsItem) bool {
	text := normalize.StripHTML(item.Title + " " + item.ContentSnippet + " " + item.Content)
	if text == "" {
		return false
	}

	hasServed := false
	for _, r := range text {
		if unicode.IsOneOf(disallowedScripts, r) {
			return false
		}
		if unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Cyrillic, r) {
			hasServed = true
		}
	}
	return hasServed
}

// BlockedDomain reports whether the link's hostname matches a configured
// blocked domain substring. Unparseable links fail open.
func (c Config) BlockedDomain(link string) bool {
	if len(c.BlockedDomains) == 0 {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	for _, blocked := range c.BlockedDomains {
		if blocked != "" && strings.Contains(host, blocked) {
			return true
		}
	}
	return false
}

// BlockedKeyword reports whether any configured keyword occurs in the
// lower-cased concatenation of the item's display text
func (c Config) BlockedKeyword(item domain.NewsItem) bool {
	if len(c.BlockedKeywords) == 0 {
		return false
	}
	text := strings.ToLower(item.Title + " " + item.ContentSnippet + " " + normalize.StripHTML(item.Content))
	for _, kw := range c.BlockedKeywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Keep reports whether an item passes the write-path filter set: quality,
// language and blocked domains
func (c Config) Keep(item domain.NewsItem) bool {
	if c.LowQuality(item) {
		return false
	}
	if !AllowedLanguage(item) {
		return false
	}
	if c.BlockedDomain(item.Link) {
		return false
	}
	return true
}

// KeepOnRead reports whether an item passes the read-path filter set, which
// adds the blocked keyword screen over display text
func (c Config) KeepOnRead(item domain.NewsItem) bool {
	return c.Keep(item) && !c.BlockedKeyword(item)
}
