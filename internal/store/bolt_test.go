package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
)

func openTestBolt(t *testing.T) *Bolt {
	t.Helper()
	b, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "test.db"), time.Second)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBoltUpsertAndLatest(t *testing.T) {
	b := openTestBolt(t)
	ctx := context.Background()

	err := b.UpsertArticles(ctx, map[string]domain.Article{
		"a": {ID: "a", Title: "old", PubDate: 100},
		"b": {ID: "b", Title: "new", PubDate: 300},
		"c": {ID: "c", Title: "mid", PubDate: 200},
	})
	if err != nil {
		t.Fatalf("UpsertArticles: %v", err)
	}
	// Second upsert merges: a is replaced, d is added, b and c survive.
	err = b.UpsertArticles(ctx, map[string]domain.Article{
		"a": {ID: "a", Title: "old (updated)", PubDate: 100},
		"d": {ID: "d", Title: "newest", PubDate: 400},
	})
	if err != nil {
		t.Fatalf("UpsertArticles: %v", err)
	}

	got, err := b.Latest(ctx, 3)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	var ids []string
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	if len(ids) != 3 || ids[0] != "d" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("Latest ids = %v", ids)
	}

	all, _ := b.Latest(ctx, 0)
	if len(all) != 4 {
		t.Fatalf("expected 4 articles, got %d", len(all))
	}
	for _, a := range all {
		if a.ID == "a" && a.Title != "old (updated)" {
			t.Errorf("a not replaced: %+v", a)
		}
	}
}

func TestBoltDateIndexMerges(t *testing.T) {
	b := openTestBolt(t)
	ctx := context.Background()

	if err := b.UpsertDateIndex(ctx, map[string]map[string]bool{"20240101": {"a": true}}); err != nil {
		t.Fatalf("UpsertDateIndex: %v", err)
	}
	if err := b.UpsertDateIndex(ctx, map[string]map[string]bool{
		"20240101": {"b": true},
		"20240102": {"c": true},
	}); err != nil {
		t.Fatalf("UpsertDateIndex: %v", err)
	}

	ids, err := b.IDsForDate(ctx, "20240101")
	if err != nil {
		t.Fatalf("IDsForDate: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("20240101 = %v", ids)
	}

	missing, err := b.IDsForDate(ctx, "19990101")
	if err != nil || len(missing) != 0 {
		t.Errorf("missing bucket = %v, %v", missing, err)
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	b, err := OpenBolt(path, time.Second)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	if err := b.UpsertArticles(context.Background(), map[string]domain.Article{"x": {ID: "x", PubDate: 1}}); err != nil {
		t.Fatalf("UpsertArticles: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := OpenBolt(path, time.Second)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()
	got, err := b2.Latest(context.Background(), 10)
	if err != nil || len(got) != 1 || got[0].ID != "x" {
		t.Errorf("after reopen: %v, %v", got, err)
	}
}

func TestBoltClosed(t *testing.T) {
	b := openTestBolt(t)
	_ = b.Close()
	if err := b.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	err := b.UpsertArticles(context.Background(), map[string]domain.Article{"a": {ID: "a"}})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestBoltHonorsCancelledContext(t *testing.T) {
	b := openTestBolt(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.UpsertArticles(ctx, map[string]domain.Article{"a": {ID: "a"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(Config{Driver: "bolt", Path: filepath.Join(t.TempDir(), "o.db")})
	if err != nil {
		t.Fatalf("Open bolt: %v", err)
	}
	_ = s.Close()

	if _, err := Open(Config{Driver: "firebase"}); err == nil {
		t.Error("firebase without url should fail")
	}
	if _, err := Open(Config{Driver: "mongo"}); err == nil {
		t.Error("unknown driver should fail")
	}
}
