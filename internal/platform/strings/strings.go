// Package strings provides small string helpers shared by sinks and logging
package strings

import (
	std "strings"
	"unicode/utf8"
)

// SQLNull returns nil if s is blank/whitespace, else the original string.
// Useful for query args where NULL is desired for blanks
func SQLNull(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// Truncate returns s cut to at most max bytes, backing up to a UTF-8 boundary
// and appending an ellipsis when anything was cut
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	i := max
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	if i == 0 {
		i = max
	}
	return s[:i] + "..."
}
