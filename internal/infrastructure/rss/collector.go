package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/ports"
)

const userAgent = "NewsOrchestrator/1.0"

// Collector fetches RSS and Atom feeds.
type Collector struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.Collector = (*Collector)(nil)
var _ ports.StatusChecker = (*Collector)(nil)

// NewCollector wires an HTTP client; a nil client gets a 20s-timeout default.
func NewCollector(client *http.Client, logger *slog.Logger) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Collector{client: client, logger: logger}
}

// Type identifies the collector inside the registry.
func (c *Collector) Type() string {
	return "rss"
}

// Collect downloads the feed and converts its items. The cancellation
// predicate is polled between items; on a true result the items gathered so
// far are returned without error.
func (c *Collector) Collect(ctx context.Context, source domain.Source, onProgress ports.ProgressFunc, isCancelled ports.CancelledFunc) ([]domain.RawArticle, error) {
	if source.URL == "" {
		return nil, fmt.Errorf("source %q has no feed url", source.Name)
	}

	feed, err := c.fetchFeed(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	total := len(feed.Items)
	articles := make([]domain.RawArticle, 0, total)
	for i, item := range feed.Items {
		if isCancelled != nil && isCancelled() {
			c.debug("collect cancelled", "source", source.Name, "done", i, "total", total)
			return articles, nil
		}

		if article, ok := toArticle(item, source); ok {
			articles = append(articles, article)
		}
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	c.debug("feed collected", "source", source.Name, "items", len(articles))
	return articles, nil
}

// CheckStatus probes the feed by fetching and parsing it. Probe failures are
// reported inside the result, not as an error.
func (c *Collector) CheckStatus(ctx context.Context, source domain.Source) (domain.StatusResult, error) {
	res := domain.StatusResult{
		SourceName: source.Name,
		CheckedAt:  time.Now().UTC(),
	}

	if source.URL == "" {
		msg := "feed url not configured"
		res.Message = msg
		res.ErrorDetails = &msg
		return res, nil
	}

	feed, err := c.fetchFeed(ctx, source.URL)
	if err != nil {
		msg := err.Error()
		res.Message = "feed check failed"
		res.ErrorDetails = &msg
		return res, nil
	}

	res.Success = true
	res.Message = fmt.Sprintf("feed ok (%d items)", len(feed.Items))
	return res, nil
}

func (c *Collector) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	// gofeed parsers keep per-parse state, so build one per call.
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func toArticle(item *gofeed.Item, source domain.Source) (domain.RawArticle, bool) {
	if item == nil || item.Link == "" {
		return domain.RawArticle{}, false
	}

	var publishedAt time.Time
	switch {
	case item.PublishedParsed != nil:
		publishedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		publishedAt = *item.UpdatedParsed
	}

	return domain.RawArticle{
		Title:       item.Title,
		Link:        item.Link,
		Summary:     item.Description,
		Content:     item.Content,
		PublishedAt: publishedAt,
		SourceName:  source.Name,
		Category:    source.Category,
	}, true
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
