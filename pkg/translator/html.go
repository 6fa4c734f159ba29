package translator

import (
	"html"
	"regexp"
	"strings"
)

var paragraphSplitRe = regexp.MustCompile(`\n{2,}`)

// TextToHTML rebuilds safe display HTML from translated plain text. Blank
// lines separate paragraphs, single newlines become <br>, and all text is
// entity-escaped so provider output can never inject markup.
func TextToHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return "<p></p>"
	}

	paragraphs := paragraphSplitRe.Split(strings.TrimSpace(text), -1)
	var b strings.Builder
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	if b.Len() == 0 {
		return "<p></p>"
	}
	return b.String()
}
