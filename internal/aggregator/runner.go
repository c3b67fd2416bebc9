package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
)

// Store receives the two bulk write-sets of a run.
type Store interface {
	UpsertArticles(ctx context.Context, articles map[string]domain.Article) error
	UpsertDateIndex(ctx context.Context, index map[string]map[string]bool) error
}

// Enricher optionally fills in article fields before persistence.
type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// Notifier is told about every persisted run.
type Notifier interface {
	Notify(ctx context.Context, report domain.RunReport) error
}

// Runner executes one ingestion run end to end.
type Runner struct {
	engine   *Engine
	store    Store
	sources  []domain.Source
	enricher Enricher
	notifier Notifier
	strict   bool
	log      logger.Logger
	now      func() time.Time
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithEnricher enables enrichment of the capped article set.
func WithEnricher(e Enricher) RunnerOption { return func(r *Runner) { r.enricher = e } }

// WithNotifier sets the run notifier. When strict is true a notify failure fails the run.
func WithNotifier(n Notifier, strict bool) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
		r.strict = strict
	}
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(log logger.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRunner wires the engine to a store for a fixed source list.
func NewRunner(engine *Engine, store Store, sources []domain.Source, opts ...RunnerOption) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("runner requires an engine")
	}
	if store == nil {
		return nil, errors.New("runner requires a store")
	}
	r := &Runner{
		engine:  engine,
		store:   store,
		sources: append([]domain.Source(nil), sources...),
		log:     logger.NopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run aggregates, persists and notifies. Only persistence (and strict notify) failures are returned.
func (r *Runner) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: r.now().UTC(),
	}
	r.log.InfoObj("ingestion run started", "run_start", map[string]any{
		"run_id":  report.RunID,
		"sources": len(r.sources),
	})

	res := r.engine.Aggregate(ctx, r.sources)
	articles := res.Articles
	if r.enricher != nil && len(articles) > 0 {
		articles = r.enricher.Enrich(ctx, articles)
	}

	ws := BuildWriteSet(articles)
	if err := r.persist(ctx, ws); err != nil {
		r.log.ErrorObj("ingestion run failed", "run_persist_error", map[string]any{
			"run_id": report.RunID,
			"error":  err.Error(),
		})
		return report, err
	}

	report.FinishedAt = r.now().UTC()
	report.Articles = len(ws.Articles)
	report.SourceCounts = res.SourceCounts
	report.FailedSources = res.FailedSources

	r.log.InfoObj("ingestion run complete", "run_done", map[string]any{
		"run_id":         report.RunID,
		"articles":       report.Articles,
		"date_buckets":   len(ws.ByDate),
		"failed_sources": report.FailedSources,
		"duration_ms":    report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, report); err != nil {
			r.log.WarnObj("run notification failed", "run_notify_error", map[string]any{
				"run_id": report.RunID,
				"error":  err.Error(),
			})
			if r.strict {
				return report, fmt.Errorf("notify run %s: %w", report.RunID, err)
			}
		}
	}
	return report, nil
}

// persist writes the article map first, then the date index, as two bulk operations.
func (r *Runner) persist(ctx context.Context, ws domain.WriteSet) error {
	if err := r.store.UpsertArticles(ctx, ws.Articles); err != nil {
		return fmt.Errorf("upsert articles: %w", err)
	}
	if err := r.store.UpsertDateIndex(ctx, ws.ByDate); err != nil {
		return fmt.Errorf("upsert date index: %w", err)
	}
	return nil
}
