package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/pkg/httpclient"
)

const defaultMaxBodyBytes = 5 << 20 // 5 MiB

// Fetcher retrieves and parses one source.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.Article, error)
}

// HTTPClient is the transport used by HTTPFetcher.
type HTTPClient = httpclient.Client

// DefaultHTTPClient returns a resty backed client for feed fetches that stops
// reading a body once it passes maxBody bytes.
func DefaultHTTPClient(maxBody int) HTTPClient {
	return httpclient.NewRestyClient(15*time.Second, httpclient.WithBodyLimit(maxBody))
}

// FetcherOptions tunes HTTPFetcher.
type FetcherOptions struct {
	// RequestDelay is the minimum spacing between outbound requests across all sources.
	RequestDelay time.Duration
	MaxBodyBytes int
	Headers      map[string]string
}

// HTTPFetcher downloads a feed with a plain GET and hands the body to a Parser.
type HTTPFetcher struct {
	client  HTTPClient
	parser  *Parser
	limiter *rate.Limiter
	maxBody int
	headers map[string]string
}

// NewHTTPFetcher builds an HTTPFetcher; nil client and parser fall back to defaults.
// A caller supplied client should carry its own httpclient.WithBodyLimit; the
// length check in Fetch only rejects what such a client already buffered.
func NewHTTPFetcher(client HTTPClient, parser *Parser, opts FetcherOptions) *HTTPFetcher {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	if client == nil {
		client = DefaultHTTPClient(maxBody)
	}
	if parser == nil {
		parser = NewParser()
	}
	f := &HTTPFetcher{
		client:  client,
		parser:  parser,
		maxBody: maxBody,
		headers: map[string]string{
			"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5",
		},
	}
	for k, v := range opts.Headers {
		if k = strings.TrimSpace(k); k != "" && strings.TrimSpace(v) != "" {
			f.headers[k] = strings.TrimSpace(v)
		}
	}
	if opts.RequestDelay > 0 {
		f.limiter = rate.NewLimiter(rate.Every(opts.RequestDelay), 1)
	}
	return f
}

// Fetch GETs the source url and parses it. Transport, status and framing
// problems are returned as errors; per-item problems are absorbed by the parser.
func (f *HTTPFetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	if strings.TrimSpace(src.URL) == "" {
		return nil, fmt.Errorf("source %q url is empty", src.Name)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for %s fetch slot: %w", src.Name, err)
		}
	}

	body, err := fetchFeed(ctx, f.client, src, f.headers)
	if err != nil {
		return nil, err
	}
	if len(body) > f.maxBody {
		return nil, fmt.Errorf("%s feed body is %d bytes, limit %d", src.Name, len(body), f.maxBody)
	}

	articles, err := f.parser.ParseFeed(body, src.Name)
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", src.Name, err)
	}
	return articles, nil
}

// fetchFeed retrieves the raw feed body from the source url.
func fetchFeed(ctx context.Context, client HTTPClient, src domain.Source, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, src.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", src.Name, err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s feed returned status %d body: %s", src.Name, code, httpclient.Snippet(body))
	}
	return body, nil
}
