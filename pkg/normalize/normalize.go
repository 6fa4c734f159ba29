// Package normalize provides text normalization for feed content: HTML
// stripping, id derivation, publish date parsing and content cleanup.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/DarkSidr/news/pkg/domain"
)

var (
	strictPolicy  = bluemonday.StrictPolicy()
	contentPolicy = newContentPolicy()

	whitespaceRe  = regexp.MustCompile(`\s+`)
	imgSrcRe      = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"'>]+)["']`)
	emptyFigureRe = regexp.MustCompile(`(?i)<figure[^>]*>\s*</figure>`)
	readMoreRe    = regexp.MustCompile(`(?i)<a\b[^>]*>[\s\p{Z}]*(?:read[\s\p{Z}]+more|читать[\s\p{Z}]+далее)[\s\p{Z}.…!»>]*</a>`)

	angleBrackets = strings.NewReplacer("<", " ", ">", " ")
)

// epoch is the sentinel publish time for missing or unparseable dates.
// Never substitute "now" here, it would corrupt sort order across runs.
var epoch = time.Unix(0, 0).UTC()

// newContentPolicy builds the sanitizer for article bodies: user generated
// content plus images and figures, matching what sources legitimately embed
func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("img", "figure", "figcaption")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	return p
}

// StripHTML removes all markup including script/style bodies, decodes HTML
// entities and collapses whitespace. Malformed or truncated tags terminate
// the remaining unsafe content instead of leaking it. The result never
// contains angle brackets and the function is idempotent.
func StripHTML(raw string) string {
	if raw == "" {
		return ""
	}
	text := strictPolicy.Sanitize(raw)
	text = html.UnescapeString(text)
	// entities may decode back into markup-looking text, drop the brackets
	text = angleBrackets.Replace(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// SanitizeContent keeps article body HTML safe for rendering while
// preserving images and figures
func SanitizeContent(raw string) string {
	if raw == "" {
		return ""
	}
	return contentPolicy.Sanitize(raw)
}

// ExtractImage returns the main image URL of a raw item. Priority: explicit
// enclosure, then media:content reference, then the first img tag found in
// encoded content, content and snippet, in that order.
func ExtractImage(item domain.RawItem) string {
	if item.EnclosureURL != "" {
		return item.EnclosureURL
	}
	if len(item.MediaURLs) > 0 && item.MediaURLs[0] != "" {
		return item.MediaURLs[0]
	}

	for _, candidate := range []string{item.EncodedContent, item.Content, item.Snippet} {
		if candidate == "" {
			continue
		}
		if m := imgSrcRe.FindStringSubmatch(candidate); m != nil {
			return m[1]
		}
	}
	return ""
}

// BuildID derives a stable article id from the source name and the raw item.
// Guid and link take precedence over the positional fallback to maximize
// cross-run stability of the id, which the storage upsert relies on.
func BuildID(sourceName string, item domain.RawItem, index int) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return sourceName + ":" + guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return sourceName + ":" + link
	}

	title := item.Title
	if title == "" {
		title = "untitled"
	}
	pubDate := item.PubDate
	if pubDate == "" {
		pubDate = "no-date"
	}
	return fmt.Sprintf("%s:%s:%s:%d", sourceName, StripHTML(title), pubDate, index)
}

// NormalizePubDate parses a source-provided timestamp string. Missing input
// yields the epoch sentinel silently, unparseable input yields the epoch
// sentinel with a single warning.
func NormalizePubDate(input string) time.Time {
	if strings.TrimSpace(input) == "" {
		return epoch
	}
	ts, err := dateparse.ParseAny(input)
	if err != nil {
		lgr.Printf("[WARN] invalid pub date %q, using epoch fallback", input)
		return epoch
	}
	return ts.UTC()
}

// StripReadMoreLinks removes anchors whose text is a "read more" teaser,
// in English or Russian, leaving all other links untouched
func StripReadMoreLinks(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	return readMoreRe.ReplaceAllString(htmlContent, "")
}

// RemoveEmbeddedImage drops the img tag duplicating the already extracted
// lead image from content, along with figure shells left empty by it
func RemoveEmbeddedImage(content, imageURL string) string {
	if content == "" || imageURL == "" {
		return content
	}
	re, err := regexp.Compile(`(?i)<img[^>]+src=["']` + regexp.QuoteMeta(imageURL) + `["'][^>]*>`)
	if err != nil {
		return content
	}
	content = re.ReplaceAllString(content, "")
	return emptyFigureRe.ReplaceAllString(content, "")
}
