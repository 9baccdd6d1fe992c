package utils

import "strings"

// TruncateRunes cuts s to at most limit runes without splitting a character.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	for i := range s {
		if limit == 0 {
			return s[:i]
		}
		limit--
	}
	return s
}

// TruncateForLog trims s and shortens it to limit runes, marking the cut
// with an ellipsis.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if cut := TruncateRunes(s, limit); cut != s {
		if cut == "" {
			return ""
		}
		return cut + "..."
	}
	return s
}

// Flatten collapses newlines and repeated whitespace into single spaces.
func Flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
