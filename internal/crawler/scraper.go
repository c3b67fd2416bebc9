package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
	"github.com/r37344422-pixel/news/pkg/feeds"
	"github.com/r37344422-pixel/news/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHTMLBodyBytes    = 1 << 20 // 1 MiB
	defaultImageWorkers = 4
	defaultPageTimeout  = 10 * time.Second
)

// Options tunes the Scraper.
type Options struct {
	Workers      int
	RequestDelay time.Duration
	Placeholder  string
	Headers      map[string]string
}

// Scraper replaces placeholder images with the article page's social preview image.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
	opts   Options
}

// NewScraper creates a new Scraper with the given HTTP client and logger.
func NewScraper(client httpclient.Client, log logger.Logger, opts Options) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(defaultPageTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultImageWorkers
	}
	if opts.Placeholder == "" {
		opts.Placeholder = feeds.DefaultPlaceholderImage
	}
	return &Scraper{client: client, log: log, opts: opts}
}

// Enrich looks up a preview image for every article still showing the placeholder.
// Other articles, and any article whose page cannot be scraped, are returned unchanged.
func (s *Scraper) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles) // default to originals so partial results are returned on cancel

	var pending []int
	for idx, art := range articles {
		if art.Image == s.opts.Placeholder && art.Link != "" {
			pending = append(pending, idx)
		}
	}
	if len(pending) == 0 {
		return out
	}

	workerCount := min(len(pending), s.opts.Workers)

	var limiter <-chan time.Time
	if s.opts.RequestDelay > 0 {
		ticker := time.NewTicker(s.opts.RequestDelay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go s.articleWorker(ctx, articles, limiter, jobCh, out, &wg, workerID)
	}

	for _, idx := range pending {
		if ctx.Err() != nil {
			break
		}
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()

	s.log.InfoObj("image enrichment complete", "enrich_done", map[string]any{
		"candidates": len(pending),
	})
	return out
}

// articleWorker processes articles from the job channel, respecting the rate limiter.
func (s *Scraper) articleWorker(
	ctx context.Context,
	articles []domain.Article,
	limiter <-chan time.Time,
	jobCh <-chan int,
	out []domain.Article,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			continue // drain so the producer never blocks
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				continue
			case <-limiter:
			}
		}

		art := articles[idx]
		image, err := s.fetchImage(ctx, art, workerID)
		if err != nil {
			s.log.WarnObj("article image scrape failed", "enrich_error", map[string]any{
				"worker_id": workerID,
				"source":    art.Source,
				"url":       art.Link,
				"error":     err.Error(),
			})
			continue
		}
		if image != "" {
			art.Image = image
			out[idx] = art
		}
	}
}

// fetchImage fetches the article HTML and returns its preview image URL, resolved against the link.
func (s *Scraper) fetchImage(ctx context.Context, art domain.Article, workerID int) (string, error) {
	s.log.DebugObj("scraping article image", "enrich_start", map[string]any{
		"worker_id": workerID,
		"source":    art.Source,
		"url":       art.Link,
	})

	resp, err := s.client.Get(ctx, art.Link, s.opts.Headers)
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("status %d body: %s", resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return "", err
	}
	return resolveURL(meta.ImageURL, art.Link), nil
}

// parseMeta extracts page metadata from the HTML body.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel, attr string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr(attr); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`, "content"),
			extract(`meta[property="og:image:url"]`, "content"),
			extract(`meta[name="twitter:image"]`, "content"),
			extract(`link[rel="image_src"]`, "href"),
		),
	}, nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	ImageURL string
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
