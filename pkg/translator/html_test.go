package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single paragraph", "hello world", "<p>hello world</p>"},
		{"two paragraphs", "first\n\nsecond", "<p>first</p><p>second</p>"},
		{"many blank lines still one break", "first\n\n\n\nsecond", "<p>first</p><p>second</p>"},
		{"single newline becomes br", "line one\nline two", "<p>line one<br>line two</p>"},
		{"mixed", "a\nb\n\nc", "<p>a<br>b</p><p>c</p>"},
		{"escapes markup", "1 < 2 & <script>", "<p>1 &lt; 2 &amp; &lt;script&gt;</p>"},
		{"empty", "", "<p></p>"},
		{"whitespace only", "  \n  ", "<p></p>"},
		{"trims lines", "  padded  \n\n  more  ", "<p>padded</p><p>more</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TextToHTML(tt.input))
		})
	}
}
