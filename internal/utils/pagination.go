// Package utils provides small, generic helpers with no domain knowledge.
package utils

import (
	"cmp"
	"strconv"
	"strings"
)

// AtoiDefault parses s (surrounding whitespace ignored) as an int, returning
// def when s is blank or not a valid integer.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi]. lo wins when the bounds are inverted.
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
