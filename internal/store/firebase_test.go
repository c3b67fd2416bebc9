package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
)

type fakeRTDB struct {
	mu       sync.Mutex
	patches  []map[string]json.RawMessage
	queries  []string
	items    string
	byDate   string
	status   int
	lastAuth string
}

func (f *fakeRTDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = r.URL.Query().Get("auth")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
		return
	}
	switch {
	case r.Method == http.MethodPatch && r.URL.Path == "/.json":
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.patches = append(f.patches, body)
		_, _ = w.Write([]byte("{}"))
	case r.Method == http.MethodGet && r.URL.Path == "/items.json":
		f.queries = append(f.queries, r.URL.RawQuery)
		_, _ = w.Write([]byte(f.items))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/byDate/"):
		_, _ = w.Write([]byte(f.byDate))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestFirebase(t *testing.T, fake *fakeRTDB) *Firebase {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	fb, err := NewFirebase(srv.URL+"/", "secret", time.Second)
	if err != nil {
		t.Fatalf("NewFirebase: %v", err)
	}
	return fb
}

func TestFirebaseUpsertUsesMultiPathPatch(t *testing.T) {
	fake := &fakeRTDB{}
	fb := newTestFirebase(t, fake)
	ctx := context.Background()

	if err := fb.UpsertArticles(ctx, map[string]domain.Article{
		"abc": {ID: "abc", Title: "T", PubDate: 1},
	}); err != nil {
		t.Fatalf("UpsertArticles: %v", err)
	}
	if err := fb.UpsertDateIndex(ctx, map[string]map[string]bool{
		"20240101": {"abc": true},
	}); err != nil {
		t.Fatalf("UpsertDateIndex: %v", err)
	}

	if len(fake.patches) != 2 {
		t.Fatalf("expected 2 patches, got %d", len(fake.patches))
	}
	var a domain.Article
	if err := json.Unmarshal(fake.patches[0]["items/abc"], &a); err != nil || a.Title != "T" {
		t.Errorf("items patch = %s (%v)", fake.patches[0]["items/abc"], err)
	}
	if string(fake.patches[1]["byDate/20240101/abc"]) != "true" {
		t.Errorf("index patch = %v", fake.patches[1])
	}
	if fake.lastAuth != "secret" {
		t.Errorf("auth = %q", fake.lastAuth)
	}
}

func TestFirebaseLatest(t *testing.T) {
	fake := &fakeRTDB{items: `{
		"a": {"id":"a","title":"A","pubDate":1},
		"b": {"title":"B","pubDate":3},
		"c": {"id":"c","title":"C","pubDate":2}
	}`}
	fb := newTestFirebase(t, fake)

	got, err := fb.Latest(context.Background(), 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("Latest = %+v", got)
	}
	if len(fake.queries) != 1 || !strings.Contains(fake.queries[0], "limitToLast=2") {
		t.Errorf("query = %v", fake.queries)
	}
}

func TestFirebaseIDsForDateHandlesNull(t *testing.T) {
	fake := &fakeRTDB{byDate: "null"}
	fb := newTestFirebase(t, fake)
	ids, err := fb.IDsForDate(context.Background(), "20240101")
	if err != nil || len(ids) != 0 {
		t.Errorf("ids = %v, err = %v", ids, err)
	}

	fake.byDate = `{"b":true,"a":true}`
	ids, err = fb.IDsForDate(context.Background(), "20240101")
	if err != nil || strings.Join(ids, ",") != "a,b" {
		t.Errorf("ids = %v, err = %v", ids, err)
	}
}

func TestFirebaseErrorStatus(t *testing.T) {
	fb := newTestFirebase(t, &fakeRTDB{status: http.StatusUnauthorized})
	err := fb.UpsertArticles(context.Background(), map[string]domain.Article{"a": {ID: "a"}})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
	if !strings.Contains(err.Error(), `{"error":"Permission denied"}`) {
		t.Errorf("error should carry the response body, got %v", err)
	}
}

func TestFirebaseClosed(t *testing.T) {
	fb := newTestFirebase(t, &fakeRTDB{})
	_ = fb.Close()
	if _, err := fb.Latest(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
