// Package text has string helpers shared by the formatting and client
// packages.
package text

import "unicode/utf8"

// Boundary returns the largest i <= max such that s[:i] ends on a rune
// boundary. Headlines and headers are emoji- and non-ASCII-heavy, so byte
// budgets must never cut through a multibyte rune.
func Boundary(s string, max int) int {
	if max >= len(s) {
		return len(s)
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return max
}

// Truncate cuts s to at most limit bytes, backing the cut up to the
// previous rune boundary.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:Boundary(s, limit)]
}
