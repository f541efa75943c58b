package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

const minSummaryLen = 100

// Collector pulls recent videos and their transcript summaries from an
// external video-summary service.
type Collector struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Collector = (*Collector)(nil)

// New creates a reusable client for the summary service.
func New(endpoint, apiKey string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type videoEntry struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
	Duration    string `json:"duration"`
	ViewCount   int64  `json:"view_count"`
}

// Kind identifies the collector inside the registry.
func (c *Collector) Kind() domain.SourceKind {
	return domain.KindVideo
}

// Collect lists the channel's recent videos and fetches a summary for
// each. Videos without a usable summary are skipped, and a failed
// summary call drops only that video, not the whole source.
func (c *Collector) Collect(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("video summary service not configured")
	}

	var videos []videoEntry
	listPath := fmt.Sprintf("/v1/channels/%s/recent", url.PathEscape(src.Address))
	if err := c.get(ctx, listPath, &videos); err != nil {
		return nil, fmt.Errorf("list recent videos: %w", err)
	}

	now := time.Now().UTC()
	var items []domain.RawItem
	for _, video := range videos {
		var resp struct {
			Summary string `json:"summary"`
		}
		summaryPath := fmt.Sprintf("/v1/videos/%s/summary", url.PathEscape(video.VideoID))
		if err := c.get(ctx, summaryPath, &resp); err != nil {
			c.logger.Warn("video summary fetch failed",
				"source", src.Name, "video_id", video.VideoID, "error", err)
			continue
		}
		if len(resp.Summary) < minSummaryLen {
			continue
		}

		publishedAt := now
		if parsed, err := time.Parse(time.RFC3339, video.PublishedAt); err == nil {
			publishedAt = parsed
		}

		items = append(items, domain.RawItem{
			Kind:        domain.KindVideo,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Title:       video.Title,
			Body:        resp.Summary,
			URL:         "https://youtube.com/watch?v=" + video.VideoID,
			PublishedAt: publishedAt,
			FetchedAt:   now,
			Meta: map[string]string{
				"video_id": video.VideoID,
				"duration": video.Duration,
			},
		})
	}

	return items, nil
}

// CheckAvailability probes the service health endpoint.
func (c *Collector) CheckAvailability(ctx context.Context, src domain.Source) bool {
	if c.endpoint == "" {
		return false
	}
	var status struct {
		OK bool `json:"ok"`
	}
	if err := c.get(ctx, "/v1/health", &status); err != nil {
		return false
	}
	return status.OK
}

func (c *Collector) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
