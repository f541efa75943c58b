package domain

import "time"

// SourceKind discriminates collector backends.
type SourceKind string

const (
	KindChannel SourceKind = "channel"
	KindWeb     SourceKind = "web"
	KindVideo   SourceKind = "video"
)

// Category is the fixed classification set assigned during scoring.
type Category string

const (
	CategoryTrends     Category = "trends"
	CategoryChannels   Category = "channels"
	CategoryCases      Category = "cases"
	CategoryTechnology Category = "technology"
	CategoryResearch   Category = "research"
	CategoryCreative   Category = "creative"
	CategoryOther      Category = "other"
)

// Categories lists every valid category in presentation order.
func Categories() []Category {
	return []Category{
		CategoryTrends,
		CategoryChannels,
		CategoryCases,
		CategoryTechnology,
		CategoryResearch,
		CategoryCreative,
		CategoryOther,
	}
}

// ParseCategory maps free-form provider output onto the fixed set,
// defaulting to CategoryOther.
func ParseCategory(s string) Category {
	for _, c := range Categories() {
		if string(c) == s {
			return c
		}
	}
	return CategoryOther
}

// Source is a long-lived registry entry describing one content origin.
// Entries are deactivated, never deleted.
type Source struct {
	ID            int64
	Kind          SourceKind
	Name          string
	Address       string
	Active        bool
	LastSuccessAt time.Time
	CreatedAt     time.Time
}

// RawItem is one piece of content exactly as a collector produced it.
// Immutable once returned; discarded after normalization.
type RawItem struct {
	Kind        SourceKind
	SourceID    int64
	SourceName  string
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
	FetchedAt   time.Time
	Meta        map[string]string
}

// NormalizedItem carries cleaned text with a content-derived identifier.
// ContentID is a deterministic function of the normalized text plus the
// canonical URL, so re-collection of the same content yields the same id.
type NormalizedItem struct {
	ContentID   string
	SourceNames []string
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
	Ad          bool
}

// ScoredItem is a NormalizedItem after importance assessment. Scored is
// false when every provider attempt failed; such items are retained for
// audit but excluded from ranking.
type ScoredItem struct {
	NormalizedItem
	Score       int
	Category    Category
	Explanation string
	Scored      bool
}

// DigestCounts captures per-cycle observability numbers. Sources counts
// only the sources that produced items; Failed counts the ones that
// errored.
type DigestCounts struct {
	Sources    int
	Failed     int
	Raw        int
	Considered int
	Included   int
}

// Digest is the finished artifact of one cycle: headline items plus a
// categorized remainder. Immutable after assembly.
type Digest struct {
	ID          int64
	RequesterID int64
	GeneratedAt time.Time
	Elapsed     time.Duration
	TopItems    []ScoredItem
	Remainder   map[Category][]ScoredItem
	Insights    []string
	Counts      DigestCounts
}

// ItemsCount is the total number of items the digest presents.
func (d Digest) ItemsCount() int {
	n := len(d.TopItems)
	for _, items := range d.Remainder {
		n += len(items)
	}
	return n
}

// Metrics records how one cycle performed, persisted with the digest.
type Metrics struct {
	DigestID       int64
	ProcessingTime time.Duration
	SourcesCount   int
	RawCount       int
	ProcessedCount int
	TopCount       int
	ErrorsCount    int
	CreatedAt      time.Time
}
