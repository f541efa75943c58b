// Package textutil holds small text helpers shared by the pipeline and
// its presentation layers.
package textutil

import "unicode/utf8"

// Truncate cuts s to at most max bytes without splitting a multi-byte
// rune: the cut point backs up to the nearest rune boundary, so the
// result is always valid UTF-8 when the input is.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
