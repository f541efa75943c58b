package channel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
	"newsdigest/internal/textutil"
)

const (
	defaultBaseURL = "https://t.me/s"
	minMessageLen  = 50
	maxTitleLen    = 100
)

// Collector reads public chat channels through their web preview pages.
type Collector struct {
	client  *http.Client
	baseURL string
}

var _ ports.Collector = (*Collector)(nil)

// New wires an HTTP client; a nil client gets a 20s-timeout default.
func New(client *http.Client) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Collector{client: client, baseURL: defaultBaseURL}
}

// Kind identifies the collector inside the registry.
func (c *Collector) Kind() domain.SourceKind {
	return domain.KindChannel
}

// Collect fetches the channel preview page and extracts recent messages.
func (c *Collector) Collect(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	doc, err := c.fetchDocument(ctx, c.pageURL(src.Address))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var items []domain.RawItem

	doc.Find(".tgme_widget_message_wrap").Each(func(i int, wrap *goquery.Selection) {
		text := strings.TrimSpace(wrap.Find(".tgme_widget_message_text").First().Text())
		if len(text) < minMessageLen {
			return
		}

		link, _ := wrap.Find("a.tgme_widget_message_date").First().Attr("href")

		publishedAt := now
		if datetime, ok := wrap.Find("time[datetime]").First().Attr("datetime"); ok {
			if parsed, parseErr := time.Parse(time.RFC3339, datetime); parseErr == nil {
				publishedAt = parsed
			}
		}

		items = append(items, domain.RawItem{
			Kind:        domain.KindChannel,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Title:       extractTitle(text),
			Body:        text,
			URL:         link,
			PublishedAt: publishedAt,
			FetchedAt:   now,
		})
	})

	return items, nil
}

// CheckAvailability probes the preview page cheaply.
func (c *Collector) CheckAvailability(ctx context.Context, src domain.Source) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(src.Address), nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Collector) pageURL(address string) string {
	name := strings.TrimPrefix(strings.TrimSpace(address), "@")
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(c.baseURL, "/"), name)
}

func (c *Collector) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdigest/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request preview page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel preview returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse preview page: %w", err)
	}

	return doc, nil
}

// extractTitle takes the first line of a message, truncated for display.
func extractTitle(text string) string {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > maxTitleLen {
		return textutil.Truncate(firstLine, maxTitleLen-3) + "..."
	}
	return firstLine
}
