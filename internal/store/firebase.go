package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/pkg/httpclient"
)

const defaultFirebaseTimeout = 30 * time.Second

// Firebase writes to a Realtime Database over its REST API. Each upsert is a
// single multi-path PATCH against the root, so siblings are never replaced.
type Firebase struct {
	client *resty.Client
	auth   string
	closed atomic.Bool
}

// NewFirebase builds a REST store rooted at baseURL (e.g. https://x.firebaseio.com).
// auth, when set, is sent as the auth query parameter.
func NewFirebase(baseURL, auth string, timeout time.Duration) (*Firebase, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("firebase url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("firebase url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultFirebaseTimeout
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Firebase{client: c, auth: strings.TrimSpace(auth)}, nil
}

func (f *Firebase) UpsertArticles(ctx context.Context, articles map[string]domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	body := make(map[string]domain.Article, len(articles))
	for id, a := range articles {
		body["items/"+id] = a
	}
	return f.patch(ctx, body)
}

func (f *Firebase) UpsertDateIndex(ctx context.Context, index map[string]map[string]bool) error {
	if len(index) == 0 {
		return nil
	}
	body := make(map[string]bool)
	for day, ids := range index {
		for id, ok := range ids {
			if ok {
				body["byDate/"+day+"/"+id] = true
			}
		}
	}
	return f.patch(ctx, body)
}

func (f *Firebase) Latest(ctx context.Context, limit int) ([]domain.Article, error) {
	params := map[string]string{}
	if limit > 0 {
		params["orderBy"] = `"pubDate"`
		params["limitToLast"] = strconv.Itoa(limit)
	}
	var items map[string]domain.Article
	if err := f.get(ctx, "/items.json", params, &items); err != nil {
		return nil, err
	}

	out := make([]domain.Article, 0, len(items))
	for id, a := range items {
		if a.ID == "" {
			a.ID = id
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PubDate != out[j].PubDate {
			return out[i].PubDate > out[j].PubDate
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Firebase) IDsForDate(ctx context.Context, day string) ([]string, error) {
	var idx map[string]bool
	if err := f.get(ctx, "/byDate/"+url.PathEscape(day)+".json", nil, &idx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(idx))
	for id, ok := range idx {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *Firebase) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *Firebase) patch(ctx context.Context, body any) error {
	if f.closed.Load() {
		return ErrClosed
	}
	resp, err := f.request(ctx, nil).SetBody(body).Patch("/.json")
	if err != nil {
		return fmt.Errorf("firebase patch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("firebase patch status %d: %s", resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}
	return nil
}

func (f *Firebase) get(ctx context.Context, path string, params map[string]string, out any) error {
	if f.closed.Load() {
		return ErrClosed
	}
	resp, err := f.request(ctx, params).Get(path)
	if err != nil {
		return fmt.Errorf("firebase get %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("firebase get %s status %d: %s", path, resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}
	// A missing node comes back as the JSON literal null, which leaves out untouched.
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) request(ctx context.Context, params map[string]string) *resty.Request {
	req := f.client.R().SetContext(ctx)
	if f.auth != "" {
		req.SetQueryParam("auth", f.auth)
	}
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	return req
}
