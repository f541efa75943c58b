package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"newsdigest/internal/domain"
)

// SourceTracker records collection success against the source registry.
type SourceTracker interface {
	UpdateSourceLastSuccess(ctx context.Context, id int64, at time.Time) error
}

// Coordinator fans collection out across all active sources under a
// concurrency cap. One failing source never aborts its siblings; the
// cycle fails only when every source failed.
type Coordinator struct {
	registry *Registry
	tracker  SourceTracker
	limit    int64
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCoordinator wires the collector registry with fan-out bounds.
func NewCoordinator(reg *Registry, tracker SourceTracker, limit int, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if limit <= 0 {
		limit = 1
	}
	return &Coordinator{
		registry: reg,
		tracker:  tracker,
		limit:    int64(limit),
		timeout:  timeout,
		logger:   logger,
	}
}

// CollectAll runs every source's Collect concurrently, admitting at most
// the configured number in flight. Successes are aggregated; failures are
// returned per source. The error is non-nil only when zero sources
// succeeded out of a non-empty set.
func (c *Coordinator) CollectAll(ctx context.Context, sources []domain.Source) ([]domain.RawItem, []domain.SourceFailure, error) {
	if len(sources) == 0 {
		return nil, nil, domain.ErrNoSourcesAvailable
	}

	sem := semaphore.NewWeighted(c.limit)

	var (
		mu       sync.Mutex
		items    []domain.RawItem
		failures []domain.SourceFailure
		wg       sync.WaitGroup
	)

	for _, src := range sources {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			failures = append(failures, domain.SourceFailure{
				Kind: src.Kind, SourceID: src.ID, Name: src.Name, Err: err,
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			defer sem.Release(1)

			collected, err := c.collectOne(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, domain.SourceFailure{
					Kind: src.Kind, SourceID: src.ID, Name: src.Name, Err: err,
				})
				return
			}
			items = append(items, collected...)
		}(src)
	}

	wg.Wait()

	for _, f := range failures {
		c.logger.Warn("source collection failed",
			"source", f.Name, "kind", f.Kind, "source_id", f.SourceID, "error", f.Err)
	}

	if len(failures) == len(sources) {
		return nil, failures, domain.ErrNoSourcesAvailable
	}

	c.logger.Info("collection done",
		"sources", len(sources), "failed", len(failures), "items", len(items))
	return items, failures, nil
}

// collectOne bounds a single source fetch with its own timeout so a slow
// source cancels only its own unit of work.
func (c *Coordinator) collectOne(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	impl, err := c.registry.Resolve(src.Kind)
	if err != nil {
		return nil, err
	}

	collectCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	items, err := impl.Collect(collectCtx, src)
	if err != nil {
		return nil, err
	}

	if c.tracker != nil {
		if trackErr := c.tracker.UpdateSourceLastSuccess(ctx, src.ID, time.Now().UTC()); trackErr != nil {
			c.logger.Warn("record source success failed", "source", src.Name, "error", trackErr)
		}
	}

	return items, nil
}
