package category

import (
	"strings"

	"sift/internal/core/normalize"
)

func containsFold(s, lowerSub string) bool {
	return strings.Contains(normalize.Lower(s), lowerSub)
}
