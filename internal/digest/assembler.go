package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

// Options shapes the assembled digest.
type Options struct {
	TopItems    int
	ScoreCutoff int
}

// Assembler turns one cycle's scored items into a ranked Digest and
// persists it together with per-item audit rows and cycle metrics.
type Assembler struct {
	repo     ports.Repository
	insights ports.InsightsGenerator
	opts     Options
	logger   *slog.Logger
}

// New builds an assembler; insights may be nil.
func New(repo ports.Repository, insights ports.InsightsGenerator, opts Options, logger *slog.Logger) *Assembler {
	if opts.TopItems <= 0 {
		opts.TopItems = 5
	}
	return &Assembler{repo: repo, insights: insights, opts: opts, logger: logger}
}

// Assemble ranks the scored items, selects the headline set, buckets the
// remainder by category, and persists everything before returning. Items
// that failed scoring or fall below the cutoff are excluded from the
// digest but still audited.
func (a *Assembler) Assemble(ctx context.Context, requesterID int64, scored []domain.ScoredItem, counts domain.DigestCounts, startedAt time.Time) (*domain.Digest, error) {
	ranked := make([]domain.ScoredItem, 0, len(scored))
	for _, item := range scored {
		if !item.Scored || item.Score < a.opts.ScoreCutoff {
			continue
		}
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].PublishedAt.After(ranked[j].PublishedAt)
	})

	topN := a.opts.TopItems
	if topN > len(ranked) {
		topN = len(ranked)
	}
	top := ranked[:topN]

	remainder := make(map[domain.Category][]domain.ScoredItem)
	for _, item := range ranked[topN:] {
		remainder[item.Category] = append(remainder[item.Category], item)
	}

	counts.Considered = len(scored)
	counts.Included = len(ranked)

	digest := &domain.Digest{
		RequesterID: requesterID,
		GeneratedAt: time.Now().UTC(),
		Elapsed:     time.Since(startedAt),
		TopItems:    top,
		Remainder:   remainder,
		Counts:      counts,
	}

	if a.insights != nil && len(top) > 0 {
		insights, err := a.insights.Insights(ctx, top)
		if err != nil {
			a.logger.Warn("insights generation failed", "error", err)
		} else {
			digest.Insights = insights
		}
	}

	for _, item := range scored {
		if err := a.repo.RecordItemAudit(ctx, item); err != nil {
			return nil, fmt.Errorf("record item audit %s: %w", item.ContentID, err)
		}
	}

	id, err := a.repo.SaveDigest(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("save digest: %w", err)
	}
	digest.ID = id

	metrics := domain.Metrics{
		DigestID:       id,
		ProcessingTime: digest.Elapsed,
		SourcesCount:   counts.Sources,
		RawCount:       counts.Raw,
		ProcessedCount: counts.Considered,
		TopCount:       len(top),
		ErrorsCount:    counts.Failed,
		CreatedAt:      digest.GeneratedAt,
	}
	if err := a.repo.SaveMetrics(ctx, metrics); err != nil {
		return nil, fmt.Errorf("save metrics: %w", err)
	}

	a.logger.Info("digest assembled",
		"requester", requesterID,
		"top", len(top),
		"remainder", counts.Included-len(top),
		"elapsed", digest.Elapsed)

	return digest, nil
}
