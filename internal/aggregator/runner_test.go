package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/r37344422-pixel/news/internal/domain"
)

type memStore struct {
	mu        sync.Mutex
	articles  map[string]domain.Article
	byDate    map[string]map[string]bool
	calls     []string
	failItems error
	failIndex error
}

func newMemStore() *memStore {
	return &memStore{
		articles: map[string]domain.Article{},
		byDate:   map[string]map[string]bool{},
	}
}

func (m *memStore) UpsertArticles(_ context.Context, articles map[string]domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "items")
	if m.failItems != nil {
		return m.failItems
	}
	for id, a := range articles {
		m.articles[id] = a
	}
	return nil
}

func (m *memStore) UpsertDateIndex(_ context.Context, index map[string]map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "byDate")
	if m.failIndex != nil {
		return m.failIndex
	}
	for bucket, ids := range index {
		if m.byDate[bucket] == nil {
			m.byDate[bucket] = map[string]bool{}
		}
		for id := range ids {
			m.byDate[bucket][id] = true
		}
	}
	return nil
}

type recordingNotifier struct {
	reports []domain.RunReport
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, r domain.RunReport) error {
	n.reports = append(n.reports, r)
	return n.err
}

type placeholderEnricher struct{ calls int }

func (e *placeholderEnricher) Enrich(_ context.Context, arts []domain.Article) []domain.Article {
	e.calls++
	out := make([]domain.Article, len(arts))
	for i, a := range arts {
		a.Image = "https://cdn.example/og.jpg"
		out[i] = a
	}
	return out
}

func twoSourceEngine() (*Engine, []domain.Source) {
	f := newPayloadFetcher()
	f.bodies["Source A"] = sourceARSS
	f.bodies["Source B"] = sourceBAtom
	f.errs["Source C"] = errors.New("timeout")
	return NewEngine(f, nil, Options{}), []domain.Source{
		{Name: "Source A", URL: "a"},
		{Name: "Source B", URL: "b"},
		{Name: "Source C", URL: "c"},
	}
}

func TestNewRunnerValidates(t *testing.T) {
	engine, sources := twoSourceEngine()
	if _, err := NewRunner(nil, newMemStore(), sources); err == nil {
		t.Error("expected error for nil engine")
	}
	if _, err := NewRunner(engine, nil, sources); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestRunnerRunPersistsAndReports(t *testing.T) {
	engine, sources := twoSourceEngine()
	store := newMemStore()
	notifier := &recordingNotifier{}

	r, err := NewRunner(engine, store, sources, WithNotifier(notifier, false))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if strings.Join(store.calls, ",") != "items,byDate" {
		t.Errorf("write order = %v", store.calls)
	}
	if len(store.articles) != 1 {
		t.Fatalf("stored %d articles", len(store.articles))
	}
	for id := range store.articles {
		if !store.byDate["20240102"][id] {
			t.Errorf("article %s missing from date index", id)
		}
	}

	if report.RunID == "" || report.Articles != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.FailedSources) != 1 || report.FailedSources[0] != "Source C" {
		t.Errorf("failed sources = %v", report.FailedSources)
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Error("finished before started")
	}
	if len(notifier.reports) != 1 || notifier.reports[0].RunID != report.RunID {
		t.Errorf("notifier saw %+v", notifier.reports)
	}
}

func TestRunnerRunIsIdempotent(t *testing.T) {
	engine, sources := twoSourceEngine()
	store := newMemStore()
	r, _ := NewRunner(engine, store, sources)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	snapshot := make(map[string]domain.Article, len(store.articles))
	for id, a := range store.articles {
		snapshot[id] = a
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(store.articles) != len(snapshot) {
		t.Fatalf("article count changed %d -> %d", len(snapshot), len(store.articles))
	}
	for id, a := range snapshot {
		if store.articles[id] != a {
			t.Errorf("article %s changed", id)
		}
	}
}

func TestRunnerPersistFailures(t *testing.T) {
	boom := errors.New("permission denied")
	tests := []struct {
		name      string
		store     *memStore
		wantCalls string
	}{
		{"articles", &memStore{articles: map[string]domain.Article{}, failItems: boom}, "items"},
		{"date index", &memStore{articles: map[string]domain.Article{}, failIndex: boom}, "items,byDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, sources := twoSourceEngine()
			notifier := &recordingNotifier{}
			r, _ := NewRunner(engine, tt.store, sources, WithNotifier(notifier, false))

			_, err := r.Run(context.Background())
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped persist error, got %v", err)
			}
			if got := strings.Join(tt.store.calls, ","); got != tt.wantCalls {
				t.Errorf("calls = %s, want %s", got, tt.wantCalls)
			}
			if len(notifier.reports) != 0 {
				t.Error("failed run should not be notified")
			}
		})
	}
}

func TestRunnerNotifyStrictness(t *testing.T) {
	for _, strict := range []bool{false, true} {
		engine, sources := twoSourceEngine()
		notifier := &recordingNotifier{err: errors.New("topic not found")}
		r, _ := NewRunner(engine, newMemStore(), sources, WithNotifier(notifier, strict))

		_, err := r.Run(context.Background())
		if strict && err == nil {
			t.Error("strict notify failure should fail the run")
		}
		if !strict && err != nil {
			t.Errorf("lenient notify failure returned %v", err)
		}
	}
}

func TestRunnerAppliesEnricher(t *testing.T) {
	engine, sources := twoSourceEngine()
	store := newMemStore()
	enricher := &placeholderEnricher{}
	r, _ := NewRunner(engine, store, sources, WithEnricher(enricher))

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enricher.calls != 1 {
		t.Errorf("enricher called %d times", enricher.calls)
	}
	for _, a := range store.articles {
		if a.Image != "https://cdn.example/og.jpg" {
			t.Errorf("image = %q", a.Image)
		}
	}
}
