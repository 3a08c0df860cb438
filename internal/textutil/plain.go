package textutil

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips all markup from value, unescapes entities, and collapses
// runs of whitespace to single spaces.
func PlainText(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	stripped := html.UnescapeString(strictPolicy.Sanitize(value))
	return strings.Join(strings.Fields(stripped), " ")
}

// Truncate shortens value to at most limit runes, marking the cut with "...".
// A non-positive limit returns value unchanged.
func Truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	if limit <= 3 {
		return string([]rune(value)[:limit])
	}
	return string([]rune(value)[:limit-3]) + "..."
}
