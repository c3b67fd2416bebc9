package publishers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/r37344422-pixel/news/pkg/httpclient"
)

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.HTTP == nil || cfg.HTTP.URL == "" {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	client := resty.New().
		SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json")

	return &httpPublisher{
		id:      cfg.ID,
		url:     cfg.HTTP.URL,
		method:  cfg.HTTP.Method,
		headers: cfg.HTTP.Headers,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }
func (p *httpPublisher) Close() error { return nil }

// Publish sends the event; any non-2xx response is an error.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeaders(p.headers).
		SetBody(evt).
		Execute(p.method, p.url)
	if err != nil {
		return fmt.Errorf("http publish: %w", err)
	}
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return fmt.Errorf("http publish status %d: %s", code, httpclient.Snippet(resp.Body()))
	}
	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"run_id":       evt.RunID,
		"status":       resp.StatusCode(),
	})
	return nil
}
