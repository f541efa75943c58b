package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

// Coordinator fans collection out across the active sources.
type Coordinator interface {
	CollectAll(ctx context.Context, sources []domain.Source) ([]domain.RawItem, []domain.SourceFailure, error)
}

// Normalizer cleans and deduplicates one cycle's raw items.
type Normalizer interface {
	Normalize(items []domain.RawItem, now time.Time) []domain.NormalizedItem
	FilterSeen(items []domain.NormalizedItem, seen map[string]bool) []domain.NormalizedItem
}

// Scorer assigns importance scores to normalized items.
type Scorer interface {
	ScoreAll(ctx context.Context, items []domain.NormalizedItem) []domain.ScoredItem
}

// Assembler builds and persists the final digest.
type Assembler interface {
	Assemble(ctx context.Context, requesterID int64, scored []domain.ScoredItem, counts domain.DigestCounts, startedAt time.Time) (*domain.Digest, error)
}

// PipelineDeps wires all pipeline stages into the orchestration use case.
type PipelineDeps struct {
	Repository  ports.Repository
	Coordinator Coordinator
	Normalizer  Normalizer
	Scorer      Scorer
	Assembler   Assembler
	MaxAge      time.Duration
	Logger      *slog.Logger
}

// Pipeline runs one full collection-to-digest cycle.
type Pipeline struct {
	repo        ports.Repository
	coordinator Coordinator
	normalizer  Normalizer
	scorer      Scorer
	assembler   Assembler
	maxAge      time.Duration
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		repo:        deps.Repository,
		coordinator: deps.Coordinator,
		normalizer:  deps.Normalizer,
		scorer:      deps.Scorer,
		assembler:   deps.Assembler,
		maxAge:      deps.MaxAge,
		logger:      deps.Logger,
	}
}

// Run executes collection, normalization, scoring, and assembly for one
// requester, producing exactly one digest on success.
func (p *Pipeline) Run(ctx context.Context, requesterID int64) (*domain.Digest, error) {
	started := time.Now()
	logger := p.logger.With("cycle_id", uuid.NewString(), "requester", requesterID)
	logger.Info("cycle started")

	sources, err := p.repo.ActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active sources: %w", err)
	}

	raw, failures, err := p.coordinator.CollectAll(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	logger.Info("collected", "items", len(raw), "failed_sources", len(failures))

	now := time.Now()
	normalized := p.normalizer.Normalize(raw, now)

	seen, err := p.repo.SeenContentIDs(ctx, now.Add(-p.maxAge))
	if err != nil {
		return nil, fmt.Errorf("load seen content ids: %w", err)
	}
	fresh := p.normalizer.FilterSeen(normalized, seen)
	logger.Info("normalized", "unique", len(normalized), "fresh", len(fresh))

	scored := p.scorer.ScoreAll(ctx, fresh)

	counts := domain.DigestCounts{
		Sources: len(sources) - len(failures),
		Failed:  len(failures),
		Raw:     len(raw),
	}

	digest, err := p.assembler.Assemble(ctx, requesterID, scored, counts, started)
	if err != nil {
		return nil, fmt.Errorf("assemble digest: %w", err)
	}

	logger.Info("cycle completed",
		"items", digest.ItemsCount(), "elapsed", digest.Elapsed)
	return digest, nil
}
