// ABOUTME: Tests for content processing utilities
// ABOUTME: Validates HTML detection, Markdown conversion, and length caps

package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTML(t *testing.T) {
	for in, want := range map[string]bool{
		"This is just plain text without any HTML.":     false,
		"5 < 10 and 10 > 5":                             false,
		"":                                              false,
		"<p>This is a paragraph.</p>":                   true,
		`<div class="content">Some content</div>`:       true,
		`Check out <a href="https://example.com">x</a>`: true,
		"<!DOCTYPE html><html><body>Test</body></html>": true,
		"Line one<br>Line two":                          true,
	} {
		assert.Equal(t, want, IsHTML(in), in)
	}
}

func TestToMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want []string
		gone []string
	}{
		{in: "Just plain text here.", want: []string{"Just plain text here."}},
		{in: "<p>A paragraph of text.</p>", want: []string{"A paragraph of text."}, gone: []string{"<p>"}},
		{in: `<a href="https://example.com">Example</a>`, want: []string{"[Example](https://example.com)"}, gone: []string{"<a"}},
		{in: "<strong>Bold</strong> and <em>italic</em>", want: []string{"**Bold**", "*italic*"}, gone: []string{"<strong>", "<em>"}},
		{in: "<ul><li>Item 1</li><li>Item 2</li></ul>", want: []string{"Item 1", "Item 2"}, gone: []string{"<li>"}},
	}
	for _, tc := range tests {
		got := ToMarkdown(tc.in)
		for _, s := range tc.want {
			assert.Contains(t, got, s, tc.in)
		}
		for _, s := range tc.gone {
			assert.NotContains(t, got, s, tc.in)
		}
	}
	assert.Empty(t, ToMarkdown(""))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo wörld", 4, "héll"},
		{"日本語テキスト", 3, "日本語"},
		{"anything", 0, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Truncate(tc.in, tc.max), "Truncate(%q, %d)", tc.in, tc.max)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize("<p>Hello <strong>world</strong></p>")
	assert.NotContains(t, got, "<p>")
	assert.Contains(t, got, "**world**")

	assert.Len(t, Summarize(strings.Repeat("a", MaxSummaryLength+100)), MaxSummaryLength)
	assert.Equal(t, "a\n\nb", Summarize("a\n\n\n\n\nb"))
}

func TestBody(t *testing.T) {
	assert.Equal(t, "<p>x</p>", Body("  <p>x</p>\n"), "HTML is kept, whitespace trimmed")
	assert.Equal(t, "okok", Body("ok\xffok"), "invalid UTF-8 is dropped")
	assert.Len(t, Body(strings.Repeat("b", MaxContentLength+1)), MaxContentLength)
}
