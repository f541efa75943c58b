package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdigest/internal/domain"
)

func sampleDigest() *domain.Digest {
	return &domain.Digest{
		RequesterID: 42,
		GeneratedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		TopItems: []domain.ScoredItem{
			{
				NormalizedItem: domain.NormalizedItem{Title: "Big release", URL: "https://example.com/post"},
				Score:          95,
				Category:       domain.CategoryTechnology,
				Scored:         true,
			},
		},
		Counts: domain.DigestCounts{Sources: 3, Considered: 10, Included: 4},
	}
}

func TestArchiveDigestWritesMarkdownFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "archive")
	w := NewWriter(dir)

	require.NoError(t, w.ArchiveDigest(context.Background(), sampleDigest()))

	raw, err := os.ReadFile(filepath.Join(dir, "digest-2026-08-25-42.md"))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "# Daily Digest")
	assert.Contains(t, content, "Big release")
	assert.Contains(t, content, "**Score:** 95/100")
}

func TestArchiveDigestReplacesSameDayFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWriter(dir)
	ctx := context.Background()

	require.NoError(t, w.ArchiveDigest(ctx, sampleDigest()))

	second := sampleDigest()
	second.TopItems[0].Title = "Revised headline"
	require.NoError(t, w.ArchiveDigest(ctx, second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Revised headline")
}
