package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdigest/internal/digest"
	"newsdigest/internal/domain"
	"newsdigest/internal/normalize"
)

// fakeRepo backs both the gate and pipeline tests.
type fakeRepo struct {
	mu       sync.Mutex
	sources  []domain.Source
	seen     map[string]bool
	audits   []domain.ScoredItem
	saved    *domain.Digest
	metrics  []domain.Metrics
	latest   *domain.Digest
	cleanups []time.Duration
}

func (r *fakeRepo) ActiveSources(context.Context) ([]domain.Source, error) {
	return r.sources, nil
}

func (r *fakeRepo) AddSource(context.Context, domain.Source) (int64, error) { return 1, nil }

func (r *fakeRepo) DeactivateSource(context.Context, int64) error { return nil }

func (r *fakeRepo) UpdateSourceLastSuccess(context.Context, int64, time.Time) error { return nil }

func (r *fakeRepo) SeenContentIDs(context.Context, time.Time) (map[string]bool, error) {
	return r.seen, nil
}

func (r *fakeRepo) RecordItemAudit(_ context.Context, item domain.ScoredItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, item)
	return nil
}

func (r *fakeRepo) SaveDigest(_ context.Context, d *domain.Digest) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = d
	return 42, nil
}

func (r *fakeRepo) LatestDigest(context.Context, int64) (*domain.Digest, error) {
	return r.latest, nil
}

func (r *fakeRepo) SaveMetrics(_ context.Context, m domain.Metrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
	return nil
}

func (r *fakeRepo) CleanupOldContent(_ context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, olderThan)
	return 0, nil
}

type fakeCoordinator struct {
	items    []domain.RawItem
	failures []domain.SourceFailure
	err      error
}

func (c *fakeCoordinator) CollectAll(context.Context, []domain.Source) ([]domain.RawItem, []domain.SourceFailure, error) {
	return c.items, c.failures, c.err
}

// indexScorer assigns a fixed score per input position so selection
// outcomes are deterministic.
type indexScorer struct {
	scores func(i int) int
}

func (s *indexScorer) ScoreAll(_ context.Context, items []domain.NormalizedItem) []domain.ScoredItem {
	out := make([]domain.ScoredItem, len(items))
	for i, item := range items {
		out[i] = domain.ScoredItem{
			NormalizedItem: item,
			Score:          s.scores(i),
			Category:       domain.CategoryTechnology,
			Scored:         true,
		}
	}
	return out
}

func rawItem(i int, published time.Time) domain.RawItem {
	return domain.RawItem{
		Kind:        domain.KindWeb,
		SourceID:    int64(i%5 + 1),
		SourceName:  fmt.Sprintf("source-%d", i%5+1),
		Title:       fmt.Sprintf("Headline number %d", i),
		Body:        fmt.Sprintf("Body text for item %d. %s", i, strings.Repeat("More detail. ", 10)),
		URL:         fmt.Sprintf("https://example.com/articles/%d", i),
		PublishedAt: published,
		FetchedAt:   time.Now(),
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	t.Parallel()

	now := time.Now()
	fresh := now.Add(-1 * time.Hour)
	expired := now.Add(-48 * time.Hour)

	// 32 unique fresh items, 5 tracking-link duplicates of the first
	// five, and 3 expired ones: 40 raw in, 32 unique out.
	var raw []domain.RawItem
	for i := 0; i < 32; i++ {
		raw = append(raw, rawItem(i, fresh))
	}
	for i := 0; i < 5; i++ {
		dup := rawItem(i, fresh)
		dup.URL += "?utm_source=mirror"
		dup.SourceName = "mirror"
		raw = append(raw, dup)
	}
	for i := 100; i < 103; i++ {
		raw = append(raw, rawItem(i, expired))
	}
	require.Len(t, raw, 40)

	repo := &fakeRepo{
		sources: []domain.Source{
			{ID: 1, Active: true}, {ID: 2, Active: true}, {ID: 3, Active: true},
			{ID: 4, Active: true}, {ID: 5, Active: true},
		},
	}
	normalizer := normalize.New(normalize.Options{MaxAge: 24 * time.Hour, MinLength: 50}, discard())
	assembler := digest.New(repo, nil, digest.Options{TopItems: 5, ScoreCutoff: 30}, discard())

	// First 10 land below the cutoff; the remaining 22 qualify.
	scorer := &indexScorer{scores: func(i int) int {
		if i < 10 {
			return 10
		}
		return 40 + i
	}}

	p := NewPipeline(PipelineDeps{
		Repository:  repo,
		Coordinator: &fakeCoordinator{items: raw},
		Normalizer:  normalizer,
		Scorer:      scorer,
		Assembler:   assembler,
		MaxAge:      24 * time.Hour,
		Logger:      discard(),
	})

	d, err := p.Run(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 22, d.ItemsCount())
	assert.Len(t, d.TopItems, 5)
	assert.Equal(t, 40, d.Counts.Raw)
	assert.Equal(t, 32, d.Counts.Considered)
	assert.Equal(t, 22, d.Counts.Included)
	assert.Equal(t, 5, d.Counts.Sources)

	// Every unique item gets an audit row, qualifying or not.
	assert.Len(t, repo.audits, 32)
	require.NotNil(t, repo.saved)
	require.Len(t, repo.metrics, 1)
	assert.Equal(t, int64(42), repo.metrics[0].DigestID)
}

func TestPipelineSkipsAlreadySeenContent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	raw := []domain.RawItem{rawItem(1, now), rawItem(2, now)}

	normalizer := normalize.New(normalize.Options{MaxAge: 24 * time.Hour, MinLength: 50}, discard())
	firstPass := normalizer.Normalize(raw, now)
	require.Len(t, firstPass, 2)

	repo := &fakeRepo{
		sources: []domain.Source{{ID: 1, Active: true}},
		seen:    map[string]bool{firstPass[0].ContentID: true},
	}
	assembler := digest.New(repo, nil, digest.Options{TopItems: 5, ScoreCutoff: 30}, discard())

	p := NewPipeline(PipelineDeps{
		Repository:  repo,
		Coordinator: &fakeCoordinator{items: raw},
		Normalizer:  normalizer,
		Scorer:      &indexScorer{scores: func(int) int { return 80 }},
		Assembler:   assembler,
		MaxAge:      24 * time.Hour,
		Logger:      discard(),
	})

	d, err := p.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ItemsCount(), "previously scored content is not re-scored")
	assert.Len(t, repo.audits, 1)
}

func TestPipelinePropagatesCollectionFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{sources: []domain.Source{{ID: 1, Active: true}}}
	p := NewPipeline(PipelineDeps{
		Repository:  repo,
		Coordinator: &fakeCoordinator{err: domain.ErrNoSourcesAvailable},
		Normalizer:  normalize.New(normalize.Options{}, discard()),
		Scorer:      &indexScorer{scores: func(int) int { return 0 }},
		Assembler:   digest.New(repo, nil, digest.Options{}, discard()),
		MaxAge:      24 * time.Hour,
		Logger:      discard(),
	})

	_, err := p.Run(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrNoSourcesAvailable)
}

func TestPipelineCountsFailedSources(t *testing.T) {
	t.Parallel()

	now := time.Now()
	repo := &fakeRepo{
		sources: []domain.Source{
			{ID: 1, Active: true}, {ID: 2, Active: true}, {ID: 3, Active: true},
		},
	}
	coordinator := &fakeCoordinator{
		items: []domain.RawItem{rawItem(1, now)},
		failures: []domain.SourceFailure{
			{Kind: domain.KindWeb, SourceID: 3, Name: "broken", Err: fmt.Errorf("timeout")},
		},
	}

	p := NewPipeline(PipelineDeps{
		Repository:  repo,
		Coordinator: coordinator,
		Normalizer:  normalize.New(normalize.Options{MaxAge: 24 * time.Hour, MinLength: 50}, discard()),
		Scorer:      &indexScorer{scores: func(int) int { return 80 }},
		Assembler:   digest.New(repo, nil, digest.Options{TopItems: 5, ScoreCutoff: 30}, discard()),
		MaxAge:      24 * time.Hour,
		Logger:      discard(),
	})

	d, err := p.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Counts.Sources)
	assert.Equal(t, 1, d.Counts.Failed)
	require.Len(t, repo.metrics, 1)
	assert.Equal(t, 1, repo.metrics[0].ErrorsCount)
}
