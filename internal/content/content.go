// ABOUTME: Content normalization for ingested articles
// ABOUTME: Detects HTML, converts it to Markdown, and caps summary/content length

package content

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Length caps applied at ingest.
const (
	MaxSummaryLength = 500
	MaxContentLength = 50000
)

// htmlTagPattern matches common HTML tags
var htmlTagPattern = regexp.MustCompile(`<\s*(p|div|span|a|br|img|h[1-6]|ul|ol|li|table|tr|td|th|strong|em|b|i|code|pre|blockquote)[^>]*>`)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// IsHTML checks if content appears to be HTML
func IsHTML(content string) bool {
	if strings.Contains(content, "<!DOCTYPE") || strings.Contains(content, "<html") {
		return true
	}
	return htmlTagPattern.MatchString(content)
}

// ToMarkdown converts HTML content to Markdown
// If the content doesn't appear to be HTML, returns it unchanged
func ToMarkdown(content string) string {
	if content == "" || !IsHTML(content) {
		return content
	}

	markdown, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(markdown)
}

// Clean drops invalid UTF-8 and surrounding whitespace.
func Clean(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, ""))
}

// Truncate cuts s to at most max runes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Summarize turns a feed description into a short Markdown summary.
func Summarize(description string) string {
	s := ToMarkdown(Clean(description))
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return Truncate(strings.TrimSpace(s), MaxSummaryLength)
}

// Body normalizes full article content; HTML is kept as delivered.
func Body(content string) string {
	return Truncate(Clean(content), MaxContentLength)
}
