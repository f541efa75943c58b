package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"newsdigest/internal/domain"
	"newsdigest/internal/textutil"
)

var (
	whitespaceExpr = regexp.MustCompile(`\s+`)

	// adKeywords flags promotional content; flagged items stay in the
	// pipeline so the digest can exclude them explicitly.
	adKeywords = []string{
		"advertisement", "promo", "discount", "sale", "buy now",
		"order now", "partner material", "sponsored", "affiliate",
	}
)

// Options bounds what the normalizer accepts for scoring.
type Options struct {
	MaxAge    time.Duration
	MinLength int
	MaxLength int
}

// Normalizer cleans raw items, flags ads, and collapses duplicates by
// content identifier.
type Normalizer struct {
	opts   Options
	policy *bluemonday.Policy
	logger *slog.Logger
}

// New builds a normalizer; the strict policy strips every tag.
func New(opts Options, logger *slog.Logger) *Normalizer {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 4000
	}
	return &Normalizer{
		opts:   opts,
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

// Normalize cleans and deduplicates one cycle's raw items. Items older
// than MaxAge relative to now are dropped; items sharing a content id are
// merged keeping the earliest published timestamp and the union of source
// names. Output content ids are unique; ordering is not significant.
func (n *Normalizer) Normalize(items []domain.RawItem, now time.Time) []domain.NormalizedItem {
	cutoff := now.Add(-n.opts.MaxAge)
	byID := make(map[string]*domain.NormalizedItem)
	var order []string

	dropped := 0
	merged := 0
	for _, raw := range items {
		if n.opts.MaxAge > 0 && raw.PublishedAt.Before(cutoff) {
			dropped++
			continue
		}

		title := n.cleanText(raw.Title)
		body := n.cleanText(raw.Body)
		if len(body) < n.opts.MinLength {
			dropped++
			continue
		}
		body = textutil.Truncate(body, n.opts.MaxLength)

		canonical := canonicalURL(raw.URL)
		id := contentID(title, body, canonical)

		if existing, ok := byID[id]; ok {
			merged++
			if raw.PublishedAt.Before(existing.PublishedAt) {
				existing.PublishedAt = raw.PublishedAt
			}
			existing.SourceNames = unionSources(existing.SourceNames, raw.SourceName)
			continue
		}

		item := domain.NormalizedItem{
			ContentID:   id,
			SourceNames: []string{raw.SourceName},
			Title:       title,
			Body:        body,
			URL:         canonical,
			PublishedAt: raw.PublishedAt,
			Ad:          looksLikeAd(title, body),
		}
		byID[id] = &item
		order = append(order, id)
	}

	out := make([]domain.NormalizedItem, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}

	if n.logger != nil {
		n.logger.Debug("normalization done",
			"in", len(items), "out", len(out), "dropped", dropped, "merged", merged)
	}
	return out
}

// FilterSeen removes items whose content id already exists in storage for
// the current lookback window, avoiding repeat provider calls.
func (n *Normalizer) FilterSeen(items []domain.NormalizedItem, seen map[string]bool) []domain.NormalizedItem {
	if len(seen) == 0 {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if seen[item.ContentID] {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (n *Normalizer) cleanText(s string) string {
	s = n.policy.Sanitize(s)
	s = html.UnescapeString(s)
	s = whitespaceExpr.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// contentID derives the stable identifier from normalized text plus the
// canonical URL. Same content re-collected across cycles hashes the same.
func contentID(title, body, canonical string) string {
	fingerprint := strings.ToLower(title) + "\n" + strings.ToLower(body) + "\n" + canonical
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// canonicalURL strips fragments and tracking parameters so syndicated
// copies of one article canonicalize to the same address.
func canonicalURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func looksLikeAd(title, body string) bool {
	text := strings.ToLower(title + " " + body)
	for _, kw := range adKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func unionSources(names []string, name string) []string {
	for _, existing := range names {
		if existing == name {
			return names
		}
	}
	names = append(names, name)
	sort.Strings(names)
	return names
}
