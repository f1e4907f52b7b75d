package types

import (
	"strings"
	"unicode/utf8"
)

// Excerpt collapses whitespace and truncates s to at most n runes, appending
// an ellipsis when text was dropped.
func Excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	// prefer a word boundary when one is reasonably close
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)*3/4 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
