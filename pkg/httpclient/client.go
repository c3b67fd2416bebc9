package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is sent when a caller does not override User-Agent.
const DefaultUserAgent = "news-harvester/1.0 (+https://github.com/r37344422-pixel/news)"

// Response is the subset of *resty.Response callers read.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client performs GET requests.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

type restyClient struct {
	rc *resty.Client
}

// ErrBodyTooLarge is returned by Get when the response body exceeds the configured limit.
var ErrBodyTooLarge = resty.ErrResponseBodyTooLarge

// Option customizes the underlying resty client.
type Option func(*resty.Client)

// WithBodyLimit makes Get stop reading, and fail with ErrBodyTooLarge, once a
// response body grows past n bytes. n <= 0 leaves bodies unbounded.
func WithBodyLimit(n int) Option {
	return func(rc *resty.Client) {
		if n > 0 {
			rc.SetResponseBodyLimit(n)
		}
	}
}

// NewRestyClient returns a Client backed by resty with the given per-request timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) Client {
	return NewRestyClientFrom(resty.New(), timeout, opts...)
}

// NewRestyClientFrom wraps an existing resty client.
func NewRestyClientFrom(rc *resty.Client, timeout time.Duration, opts ...Option) Client {
	if rc == nil {
		rc = resty.New()
	}
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}
	rc.SetHeader("User-Agent", DefaultUserAgent)
	rc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	for _, opt := range opts {
		opt(rc)
	}
	return &restyClient{rc: rc}
}

// Get issues a GET request. Non-2xx statuses are not errors; callers inspect StatusCode.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}

const snippetLen = 512

// Snippet trims a response body for error messages and logs.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}
