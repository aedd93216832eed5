package format

import (
	"html"
	"strings"
	"unicode/utf8"
)

// HTML escapes user text for ParseMode HTML.
func HTML(s string) string {
	return html.EscapeString(s)
}

// Truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit-1])) + "…"
}
