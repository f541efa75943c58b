package usecase

import (
	"context"
	"log/slog"
	"time"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

// RenderFunc turns a digest into delivery-ready text.
type RenderFunc func(*domain.Digest) string

// SchedulerDeps wires the trigger driver and delivery surfaces into the
// recurring digest job. Notifier and Archiver are optional.
type SchedulerDeps struct {
	Driver     ports.Scheduler
	Gate       *Gate
	Notifier   ports.Notifier
	Render     RenderFunc
	Archiver   ports.Archiver
	Repository ports.Repository
	Requesters []int64
	Retention  time.Duration
	Logger     *slog.Logger
}

// DigestScheduler wires the daily trigger to scheduled cycles for every
// allowed requester, delivering the result through the notifier.
type DigestScheduler struct {
	driver     ports.Scheduler
	gate       *Gate
	notifier   ports.Notifier
	render     RenderFunc
	archiver   ports.Archiver
	repo       ports.Repository
	requesters []int64
	retention  time.Duration
	logger     *slog.Logger
}

// NewDigestScheduler returns a helper to start/stop recurring digest jobs.
func NewDigestScheduler(deps SchedulerDeps) *DigestScheduler {
	return &DigestScheduler{
		driver:     deps.Driver,
		gate:       deps.Gate,
		notifier:   deps.Notifier,
		render:     deps.Render,
		archiver:   deps.Archiver,
		repo:       deps.Repository,
		requesters: deps.Requesters,
		retention:  deps.Retention,
		logger:     deps.Logger,
	}
}

// Start registers the scheduled job with the provided driver.
func (s *DigestScheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.gate == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.runScheduled(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *DigestScheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *DigestScheduler) runScheduled(ctx context.Context, trigger time.Time) {
	s.logger.Info("scheduled digest run", "trigger", trigger)

	for _, requester := range s.requesters {
		digest, err := s.gate.RunScheduledCycle(ctx, requester)
		if err != nil {
			s.logger.Error("scheduled cycle failed", "requester", requester, "error", err)
			continue
		}

		if s.archiver != nil {
			if err := s.archiver.ArchiveDigest(ctx, digest); err != nil {
				s.logger.Warn("digest archive failed", "requester", requester, "error", err)
			}
		}

		if s.notifier != nil && s.render != nil {
			if err := s.notifier.SendDigest(ctx, requester, s.render(digest)); err != nil {
				s.logger.Error("digest delivery failed", "requester", requester, "error", err)
				continue
			}
		}
		s.logger.Info("scheduled digest delivered", "requester", requester, "items", digest.ItemsCount())
	}

	if s.repo != nil && s.retention > 0 {
		deleted, err := s.repo.CleanupOldContent(ctx, s.retention)
		if err != nil {
			s.logger.Warn("content cleanup failed", "error", err)
		} else if deleted > 0 {
			s.logger.Info("old content pruned", "deleted", deleted)
		}
	}
}
