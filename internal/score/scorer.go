package score

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

const maxAttempts = 3

// Options bounds provider calls.
type Options struct {
	Concurrency int
	CallTimeout time.Duration
	BaseDelay   time.Duration
}

// Scorer assigns importance scores through a primary reasoning provider,
// falling back to a secondary one when the primary exhausts its retries.
// An item whose every attempt fails is marked unscored, never dropped.
type Scorer struct {
	primary  ports.Provider
	fallback ports.Provider
	opts     Options
	logger   *slog.Logger
}

// New wires providers into a scorer; fallback may be nil.
func New(primary, fallback ports.Provider, opts Options, logger *slog.Logger) *Scorer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	return &Scorer{primary: primary, fallback: fallback, opts: opts, logger: logger}
}

// ScoreAll scores every item concurrently under the configured bound.
// Output preserves input order; each item is scored exactly once.
func (s *Scorer) ScoreAll(ctx context.Context, items []domain.NormalizedItem) []domain.ScoredItem {
	results := make([]domain.ScoredItem, len(items))
	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))

	var wg sync.WaitGroup
	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = unscored(item)
			continue
		}

		wg.Add(1)
		go func(i int, item domain.NormalizedItem) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = s.scoreOne(ctx, item)
		}(i, item)
	}
	wg.Wait()

	scoredCount := 0
	for _, r := range results {
		if r.Scored {
			scoredCount++
		}
	}
	s.logger.Info("scoring done", "items", len(items), "scored", scoredCount)

	return results
}

func (s *Scorer) scoreOne(ctx context.Context, item domain.NormalizedItem) domain.ScoredItem {
	if s.primary == nil {
		return unscored(item)
	}

	assessment, err := s.analyzeWithRetry(ctx, s.primary, item)
	if err != nil && s.fallback != nil {
		s.logger.Warn("primary provider exhausted, trying fallback",
			"content_id", item.ContentID, "provider", s.primary.Name(), "error", err)
		assessment, err = s.analyzeWithRetry(ctx, s.fallback, item)
	}
	if err != nil {
		failure := domain.ScoringFailure{ContentID: item.ContentID, Provider: s.providerNames(), Err: err}
		s.logger.Error("scoring failed", "content_id", item.ContentID, "error", failure)
		return unscored(item)
	}

	return domain.ScoredItem{
		NormalizedItem: item,
		Score:          clampScore(assessment.Score),
		Category:       assessment.Category,
		Explanation:    assessment.Explanation,
		Scored:         true,
	}
}

// analyzeWithRetry calls one provider with a per-call timeout and
// exponential backoff, capped at three attempts.
func (s *Scorer) analyzeWithRetry(ctx context.Context, provider ports.Provider, item domain.NormalizedItem) (ports.Assessment, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.BaseDelay
	bo.Multiplier = 2

	operation := func() (ports.Assessment, error) {
		callCtx := ctx
		if s.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
		}
		return provider.Analyze(callCtx, item)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(maxAttempts),
	)
}

func (s *Scorer) providerNames() string {
	if s.fallback == nil {
		return s.primary.Name()
	}
	return s.primary.Name() + "," + s.fallback.Name()
}

func unscored(item domain.NormalizedItem) domain.ScoredItem {
	return domain.ScoredItem{
		NormalizedItem: item,
		Category:       domain.CategoryOther,
		Scored:         false,
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
