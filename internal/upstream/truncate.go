package upstream

import "unicode/utf8"

const (
	// DetailLimit bounds diagnostic snippets returned to clients.
	DetailLimit = 300
	// FallbackLimit bounds the stringified reply used when no known shape matches.
	FallbackLimit = 2000
)

// Truncate cuts s to at most limit characters without splitting a rune.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
