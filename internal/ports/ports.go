package ports

import (
	"context"
	"time"

	"newsdigest/internal/domain"
)

// Collector retrieves raw items from one kind of source backend.
type Collector interface {
	Kind() domain.SourceKind
	Collect(ctx context.Context, src domain.Source) ([]domain.RawItem, error)
	CheckAvailability(ctx context.Context, src domain.Source) bool
}

// Assessment is a reasoning provider's verdict for one item.
type Assessment struct {
	Score       int
	Category    domain.Category
	Explanation string
}

// Provider scores an item's importance via an external reasoning service.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, item domain.NormalizedItem) (Assessment, error)
}

// InsightsGenerator derives day-level takeaways from the headline items.
type InsightsGenerator interface {
	Insights(ctx context.Context, top []domain.ScoredItem) ([]string, error)
}

// Repository persists sources, per-item audit rows, digests, and metrics.
type Repository interface {
	ActiveSources(ctx context.Context) ([]domain.Source, error)
	AddSource(ctx context.Context, src domain.Source) (int64, error)
	DeactivateSource(ctx context.Context, id int64) error
	UpdateSourceLastSuccess(ctx context.Context, id int64, at time.Time) error

	SeenContentIDs(ctx context.Context, since time.Time) (map[string]bool, error)
	RecordItemAudit(ctx context.Context, item domain.ScoredItem) error

	SaveDigest(ctx context.Context, digest *domain.Digest) (int64, error)
	LatestDigest(ctx context.Context, requesterID int64) (*domain.Digest, error)
	SaveMetrics(ctx context.Context, m domain.Metrics) error

	CleanupOldContent(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Notifier delivers a rendered digest to a requester.
type Notifier interface {
	SendDigest(ctx context.Context, requesterID int64, text string) error
}

// Archiver keeps a rendered copy of each digest outside the database.
type Archiver interface {
	ArchiveDigest(ctx context.Context, digest *domain.Digest) error
}

// Scheduler controls when scheduled cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
