package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
	"github.com/r37344422-pixel/news/pkg/feeds"
)

const (
	// DefaultMaxArticles caps the persisted collection.
	DefaultMaxArticles = 1000
	defaultWorkers     = 4
)

// Options tunes the Engine.
type Options struct {
	MaxArticles int
	Concurrency int
	// RunTimeout bounds the join over all sources; sources still running count as failed.
	RunTimeout time.Duration
}

// Engine fetches every source, then ranks, dedups and caps the merged articles.
type Engine struct {
	fetcher feeds.Fetcher
	log     logger.Logger
	opts    Options
}

// Result is the output of one Aggregate call.
type Result struct {
	Articles      []domain.Article
	SourceCounts  map[string]int
	FailedSources []string
}

// NewEngine builds an Engine. A nil fetcher uses the default HTTP fetcher.
func NewEngine(fetcher feeds.Fetcher, log logger.Logger, opts Options) *Engine {
	if fetcher == nil {
		fetcher = feeds.NewHTTPFetcher(nil, nil, feeds.FetcherOptions{})
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = DefaultMaxArticles
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultWorkers
	}
	return &Engine{fetcher: fetcher, log: log, opts: opts}
}

// Aggregate never fails as a whole; a source that errors contributes nothing.
func (e *Engine) Aggregate(ctx context.Context, sources []domain.Source) Result {
	perSource, failed := e.fetchAll(ctx, sources)

	counts := make(map[string]int, len(sources))
	for i, src := range sources {
		counts[src.Name] += len(perSource[i])
	}

	return Result{
		Articles:      Merge(perSource, e.opts.MaxArticles),
		SourceCounts:  counts,
		FailedSources: failed,
	}
}

// fetchAll runs the per-source pipelines on a bounded worker pool and joins them.
// Results are indexed by source position so concatenation order is deterministic.
func (e *Engine) fetchAll(ctx context.Context, sources []domain.Source) ([][]domain.Article, []string) {
	out := make([][]domain.Article, len(sources))
	if len(sources) == 0 {
		return out, nil
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.opts.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
	}
	defer cancel()

	var (
		mu   sync.Mutex
		done = make([]bool, len(sources))
		ok   = make([]bool, len(sources))
	)

	workerCount := min(len(sources), e.opts.Concurrency)
	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				arts, err := e.fetchSource(runCtx, sources[idx], workerID)
				mu.Lock()
				done[idx] = true
				if err == nil {
					out[idx] = arts
					ok[idx] = true
				}
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for idx := range sources {
			select {
			case jobCh <- idx:
			case <-runCtx.Done():
				return
			}
		}
	}()

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			e.log.WarnObj("ingestion join timed out", "run_timeout", map[string]any{
				"timeout": e.opts.RunTimeout.String(),
			})
		} else {
			e.log.WarnObj("ingestion cancelled", "run_cancelled", map[string]any{
				"error": runCtx.Err().Error(),
			})
		}
	}

	mu.Lock()
	defer mu.Unlock()

	snapshot := make([][]domain.Article, len(sources))
	var failed []string
	for idx, src := range sources {
		if !done[idx] || !ok[idx] {
			failed = append(failed, src.Name)
			continue
		}
		snapshot[idx] = out[idx]
	}
	return snapshot, failed
}

// fetchSource is the fault boundary for one source: errors and panics become an empty result.
func (e *Engine) fetchSource(ctx context.Context, src domain.Source, workerID int) (arts []domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			arts, err = nil, fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			e.log.WarnObj("source fetch failed", "source_fetch_error", map[string]any{
				"worker_id": workerID,
				"source":    src.Name,
				"url":       src.URL,
				"error":     err.Error(),
			})
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.log.DebugObj("fetching source", "source_fetch_start", map[string]any{
		"worker_id": workerID,
		"source":    src.Name,
		"url":       src.URL,
	})

	arts, err = e.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	e.log.InfoObj("source fetched", "source_fetch_done", map[string]any{
		"source":   src.Name,
		"articles": len(arts),
	})
	return arts, nil
}

// Merge concatenates per-source results in order, then ranks, dedups and caps.
func Merge(perSource [][]domain.Article, maxArticles int) []domain.Article {
	total := 0
	for _, arts := range perSource {
		total += len(arts)
	}
	all := make([]domain.Article, 0, total)
	for _, arts := range perSource {
		all = append(all, arts...)
	}
	return Cap(Dedup(Rank(all)), maxArticles)
}

// Rank sorts newest first. Ties keep input order.
func Rank(articles []domain.Article) []domain.Article {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PubDate > articles[j].PubDate
	})
	return articles
}

// Dedup keeps the first occurrence of each id. Run it after Rank so the
// survivor of a duplicate group is its most recent copy.
func Dedup(articles []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if a.ID == "" {
			a.ID = feeds.Identity(a.Title, a.Link)
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Cap drops the tail beyond maxArticles.
func Cap(articles []domain.Article, maxArticles int) []domain.Article {
	if maxArticles <= 0 || len(articles) <= maxArticles {
		return articles
	}
	return articles[:maxArticles]
}

// BuildWriteSet keys articles by id and indexes ids by UTC publish day.
func BuildWriteSet(articles []domain.Article) domain.WriteSet {
	ws := domain.WriteSet{
		Articles: make(map[string]domain.Article, len(articles)),
		ByDate:   make(map[string]map[string]bool),
	}
	for _, a := range articles {
		ws.Articles[a.ID] = a
		bucket := a.DateBucket()
		if ws.ByDate[bucket] == nil {
			ws.ByDate[bucket] = make(map[string]bool)
		}
		ws.ByDate[bucket][a.ID] = true
	}
	return ws
}
