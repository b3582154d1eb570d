// Package sanitize turns model output into plain text suitable for a
// Telegram message sent without a parse mode.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags  = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?li>|</?h[1-6]>`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// Cleaner strips markdown and HTML from text.
type Cleaner struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
	maxRunes int
}

// NewCleaner creates a Cleaner. Results longer than maxRunes are cut;
// zero means no limit.
func NewCleaner(maxRunes int) *Cleaner {
	return &Cleaner{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
		maxRunes: maxRunes,
	}
}

// Plain renders text as markdown, drops every tag and returns what is left.
// When the markdown cannot be rendered the input is returned trimmed.
func (c *Cleaner) Plain(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(text), &buf); err != nil {
		return c.cut(text)
	}

	out := blockTags.ReplaceAllString(buf.String(), "\n")
	out = c.policy.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n\n")
	out = html.UnescapeString(out)
	return c.cut(strings.TrimSpace(out))
}

func (c *Cleaner) cut(s string) string {
	if c.maxRunes <= 0 || utf8.RuneCountInString(s) <= c.maxRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:c.maxRunes-1])) + "…"
}
