package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

// PipelineRunner executes one full cycle for a requester.
type PipelineRunner interface {
	Run(ctx context.Context, requesterID int64) (*domain.Digest, error)
}

// Gate decides per requester whether a fresh cycle is needed or a cached
// digest may be reused. Concurrent requests for the same requester share
// one in-flight execution; a failed cycle degrades to the most recent
// completed digest when one exists.
type Gate struct {
	pipeline  PipelineRunner
	repo      ports.Repository
	staleness time.Duration
	logger    *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	cache map[int64]*domain.Digest

	now func() time.Time
}

// NewGate wires the pipeline behind the cache/staleness gate.
func NewGate(pipeline PipelineRunner, repo ports.Repository, staleness time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		pipeline:  pipeline,
		repo:      repo,
		staleness: staleness,
		logger:    logger,
		cache:     map[int64]*domain.Digest{},
		now:       time.Now,
	}
}

// RequestDigest serves a manual request. A completed digest younger than
// the staleness window is returned directly; otherwise exactly one cycle
// runs even under concurrent requests, with every waiter receiving the
// same result.
func (g *Gate) RequestDigest(ctx context.Context, requesterID int64) (*domain.Digest, error) {
	if cached := g.freshCached(requesterID); cached != nil {
		g.logger.Debug("digest cache hit", "requester", requesterID, "generated_at", cached.GeneratedAt)
		return cached, nil
	}
	return g.runShared(ctx, requesterID)
}

// RunScheduledCycle always executes a new cycle and replaces the cache,
// regardless of cache freshness. Overlapping triggers for one requester
// still collapse into a single execution.
func (g *Gate) RunScheduledCycle(ctx context.Context, requesterID int64) (*domain.Digest, error) {
	return g.runShared(ctx, requesterID)
}

func (g *Gate) runShared(ctx context.Context, requesterID int64) (*domain.Digest, error) {
	key := strconv.FormatInt(requesterID, 10)

	v, err, _ := g.group.Do(key, func() (any, error) {
		digest, runErr := g.pipeline.Run(ctx, requesterID)
		if runErr != nil {
			return nil, runErr
		}
		// Publish only the finished artifact; readers never observe a
		// partially built digest.
		g.mu.Lock()
		g.cache[requesterID] = digest
		g.mu.Unlock()
		return digest, nil
	})
	if err != nil {
		return g.degrade(ctx, requesterID, err)
	}
	return v.(*domain.Digest), nil
}

// degrade serves the most recent completed digest after a failed cycle,
// or surfaces the failure when none exists.
func (g *Gate) degrade(ctx context.Context, requesterID int64, cause error) (*domain.Digest, error) {
	g.logger.Error("cycle failed", "requester", requesterID, "error", cause)

	g.mu.Lock()
	cached := g.cache[requesterID]
	g.mu.Unlock()
	if cached != nil {
		g.logger.Warn("serving stale digest after failure",
			"requester", requesterID, "generated_at", cached.GeneratedAt)
		return cached, nil
	}

	stored, err := g.repo.LatestDigest(ctx, requesterID)
	if err == nil && stored != nil {
		g.logger.Warn("serving persisted digest after failure",
			"requester", requesterID, "generated_at", stored.GeneratedAt)
		return stored, nil
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrDigestUnavailable, cause)
}

func (g *Gate) freshCached(requesterID int64) *domain.Digest {
	g.mu.Lock()
	defer g.mu.Unlock()

	cached, ok := g.cache[requesterID]
	if !ok {
		return nil
	}
	if g.now().Sub(cached.GeneratedAt) >= g.staleness {
		return nil
	}
	return cached
}
