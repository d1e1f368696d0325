package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/ports"
)

const userAgent = "NewsOrchestrator/1.0"

// Selector and pagination keys read from a source's custom config.
const (
	optItemSelector    = "itemSelector"
	optTitleSelector   = "titleSelector"
	optLinkSelector    = "linkSelector"
	optSummarySelector = "summarySelector"
	optPageParam       = "pageParam"
	optMaxPages        = "maxPages"
)

// Collector scrapes paginated listing pages with CSS selectors supplied in
// the source's custom config.
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
	return "scrape"
}

type scrapeConfig struct {
	itemSelector    string
	titleSelector   string
	linkSelector    string
	summarySelector string
	pageParam       string
	maxPages        int
}

func configFor(source domain.Source) scrapeConfig {
	opt := func(key, fallback string) string {
		if v, ok := source.CustomConfig[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := scrapeConfig{
		itemSelector:    opt(optItemSelector, "article"),
		titleSelector:   opt(optTitleSelector, ""),
		linkSelector:    opt(optLinkSelector, "a"),
		summarySelector: opt(optSummarySelector, ""),
		pageParam:       opt(optPageParam, ""),
		maxPages:        1,
	}

	if raw := opt(optMaxPages, ""); raw != "" {
		if pages, err := strconv.Atoi(raw); err == nil && pages > 0 {
			cfg.maxPages = pages
		}
	}
	// No page parameter means the source has a single listing page.
	if cfg.pageParam == "" {
		cfg.maxPages = 1
	}
	return cfg
}

// Collect walks listing pages and extracts one article per matched item.
// The cancellation predicate is polled between pages; on a true result the
// pages scraped so far are returned without error.
func (c *Collector) Collect(ctx context.Context, source domain.Source, onProgress ports.ProgressFunc, isCancelled ports.CancelledFunc) ([]domain.RawArticle, error) {
	if source.URL == "" {
		return nil, fmt.Errorf("source %q has no url", source.Name)
	}

	cfg := configFor(source)
	articles := make([]domain.RawArticle, 0)
	seen := map[string]struct{}{}

	for page := 1; page <= cfg.maxPages; page++ {
		if isCancelled != nil && isCancelled() {
			c.debug("collect cancelled", "source", source.Name, "page", page)
			return articles, nil
		}

		pageURL, err := buildPageURL(source.URL, cfg.pageParam, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		doc, err := c.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		pageArticles := extractArticles(doc, cfg, source)
		added := 0
		for _, article := range pageArticles {
			if _, ok := seen[article.Link]; ok {
				continue
			}
			seen[article.Link] = struct{}{}
			articles = append(articles, article)
			added++
		}

		if onProgress != nil {
			onProgress(page, cfg.maxPages)
		}
		if added == 0 {
			break
		}
	}

	c.debug("scrape collected", "source", source.Name, "items", len(articles))
	return articles, nil
}

// CheckStatus fetches the first listing page and verifies the item selector
// matches something. Probe failures are reported inside the result.
func (c *Collector) CheckStatus(ctx context.Context, source domain.Source) (domain.StatusResult, error) {
	res := domain.StatusResult{
		SourceName: source.Name,
		CheckedAt:  time.Now().UTC(),
	}

	if source.URL == "" {
		msg := "source url not configured"
		res.Message = msg
		res.ErrorDetails = &msg
		return res, nil
	}

	cfg := configFor(source)
	doc, err := c.fetchDocument(ctx, source.URL)
	if err != nil {
		msg := err.Error()
		res.Message = "page check failed"
		res.ErrorDetails = &msg
		return res, nil
	}

	matched := doc.Find(cfg.itemSelector).Length()
	if matched == 0 {
		msg := fmt.Sprintf("selector %q matched no items", cfg.itemSelector)
		res.Message = msg
		res.ErrorDetails = &msg
		return res, nil
	}

	res.Success = true
	res.Message = fmt.Sprintf("page ok (%d items matched)", matched)
	return res, nil
}

func (c *Collector) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractArticles(doc *goquery.Document, cfg scrapeConfig, source domain.Source) []domain.RawArticle {
	base, _ := url.Parse(source.URL)

	var articles []domain.RawArticle
	doc.Find(cfg.itemSelector).Each(func(i int, item *goquery.Selection) {
		link := item.Find(cfg.linkSelector).First()
		href, _ := link.Attr("href")
		if href == "" {
			return
		}

		title := strings.TrimSpace(link.Text())
		if cfg.titleSelector != "" {
			title = strings.TrimSpace(item.Find(cfg.titleSelector).First().Text())
		}
		if title == "" {
			return
		}

		var summary string
		if cfg.summarySelector != "" {
			summary = strings.TrimSpace(item.Find(cfg.summarySelector).First().Text())
		}

		articles = append(articles, domain.RawArticle{
			Title:      title,
			Link:       resolveLink(base, href),
			Summary:    summary,
			SourceName: source.Name,
			Category:   source.Category,
		})
	})

	return articles
}

func resolveLink(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func buildPageURL(base, pageParam string, page int) (string, error) {
	if pageParam == "" || page == 1 {
		return base, nil
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set(pageParam, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
