package task

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace.
// Used for status parsing and title matching.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// TitleMatches reports whether query equals or is contained in title,
// ignoring case and whitespace runs.
func TitleMatches(title, query string) bool {
	q := Normalize(query)
	if q == "" {
		return false
	}
	t := Normalize(title)
	return t == q || strings.Contains(t, q)
}
