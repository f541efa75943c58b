package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

const maxPageArticles = 3

// Collector reads web sources: RSS/Atom feeds when the address looks like
// a feed URL, otherwise article blocks scraped from the page itself.
type Collector struct {
	client *http.Client
}

var _ ports.Collector = (*Collector)(nil)

// New wires an HTTP client; a nil client gets a 20s-timeout default.
func New(client *http.Client) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Collector{client: client}
}

// Kind identifies the collector inside the registry.
func (c *Collector) Kind() domain.SourceKind {
	return domain.KindWeb
}

// Collect dispatches on the address shape: feed URLs are parsed as
// RSS/Atom, anything else is scraped as a page.
func (c *Collector) Collect(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	if isFeedURL(src.Address) {
		return c.collectFeed(ctx, src)
	}
	return c.collectPage(ctx, src)
}

// CheckAvailability probes the source address cheaply.
func (c *Collector) CheckAvailability(ctx context.Context, src domain.Source) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Address, nil)
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

func (c *Collector) collectFeed(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now().UTC()
	items := make([]domain.RawItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		publishedAt := now
		if entry.PublishedParsed != nil {
			publishedAt = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			publishedAt = *entry.UpdatedParsed
		}

		body := entry.Content
		if body == "" {
			body = entry.Description
		}

		items = append(items, domain.RawItem{
			Kind:        domain.KindWeb,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Title:       strings.TrimSpace(entry.Title),
			Body:        body,
			URL:         strings.TrimSpace(entry.Link),
			PublishedAt: publishedAt,
			FetchedAt:   now,
		})
	}

	return items, nil
}

func (c *Collector) collectPage(ctx context.Context, src domain.Source) ([]domain.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdigest/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	now := time.Now().UTC()
	var items []domain.RawItem

	doc.Find("article").EachWithBreak(func(i int, article *goquery.Selection) bool {
		if len(items) >= maxPageArticles {
			return false
		}

		title := extractHeading(article)
		body := strings.TrimSpace(article.Text())
		link := extractLink(article, src.Address)

		items = append(items, domain.RawItem{
			Kind:        domain.KindWeb,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Title:       title,
			Body:        body,
			URL:         link,
			PublishedAt: now,
			FetchedAt:   now,
		})
		return true
	})

	return items, nil
}

func isFeedURL(address string) bool {
	lower := strings.ToLower(address)
	return strings.Contains(lower, "/rss") ||
		strings.Contains(lower, "/feed") ||
		strings.HasSuffix(lower, ".xml")
}

func extractHeading(article *goquery.Selection) string {
	for _, tag := range []string{"h1", "h2", "h3"} {
		if heading := strings.TrimSpace(article.Find(tag).First().Text()); heading != "" {
			return heading
		}
	}
	return ""
}

func extractLink(article *goquery.Selection, pageURL string) string {
	href, ok := article.Find("a[href]").First().Attr("href")
	if !ok {
		return pageURL
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(pageURL, "/") + href
	}
	return pageURL
}
