// Package normalize holds the text transforms applied before matching and before storage
// Lower is the only transform the matcher applies; Sanitize is for database sinks
package normalize

import (
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cases.Caser is stateful and not safe for concurrent use, so pool them
var lowerPool = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Und)
		return &c
	},
}

// Lower returns the full Unicode lowercase mapping of s
func Lower(s string) string {
	if s == "" {
		return ""
	}
	if isLowerASCII(s) {
		return s
	}
	c := lowerPool.Get().(*cases.Caser)
	out := c.String(s)
	lowerPool.Put(c)
	return out
}

func isLowerASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 0x80 || ('A' <= b && b <= 'Z') {
			return false
		}
	}
	return true
}
