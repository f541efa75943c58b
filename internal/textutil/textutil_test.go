package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "", Truncate("anything", 0))
	assert.Equal(t, "", Truncate("anything", -1))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	// Cyrillic runes are 2 bytes each; an odd byte budget would land
	// mid-rune.
	s := strings.Repeat("долгий текст ", 10)
	for _, max := range []int{1, 7, 50, 101, len(s) - 1} {
		got := Truncate(s, max)
		assert.True(t, utf8.ValidString(got), "max=%d produced %q", max, got)
		assert.LessOrEqual(t, len(got), max)
	}

	// A 4-byte emoji at the boundary is dropped whole.
	assert.Equal(t, "ab", Truncate("ab\U0001F600cd", 5))
}
