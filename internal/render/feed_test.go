package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
)

var feedArticles = []domain.Article{
	{
		ID:      "abc",
		Title:   "Budget passed",
		Link:    "https://paper.example/budget",
		PubDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Source:  "Paper",
		Image:   "https://cdn.example/b.png?w=600",
		Summary: "<p>Lawmakers voted...</p>",
	},
	{
		ID:      "def",
		Title:   "Older story",
		Link:    "https://paper.example/older",
		PubDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Image:   "/placeholder.jpg",
	},
}

func TestFeedAtom(t *testing.T) {
	var buf bytes.Buffer
	meta := FeedMeta{Title: "Headlines", BaseURL: "https://news.example", PostPath: "/post/{id}"}
	if err := Feed(&buf, FormatAtom, meta, feedArticles); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<feed xmlns="http://www.w3.org/2005/Atom"`,
		"<title>Headlines</title>",
		"urn:news:abc",
		"https://news.example/post/abc",
		"2024-01-02T00:00:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("atom output missing %q", want)
		}
	}
}

func TestFeedRSS(t *testing.T) {
	var buf bytes.Buffer
	if err := Feed(&buf, "RSS", FeedMeta{BaseURL: "https://news.example"}, feedArticles); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `<rss version="2.0"`) {
		t.Errorf("not rss: %s", out)
	}
	if !strings.Contains(out, "https://paper.example/budget") {
		t.Error("item should link to the original article without a post path")
	}
	if !strings.Contains(out, `type="image/png"`) {
		t.Error("missing png enclosure")
	}
	if strings.Count(out, "<enclosure") != 1 {
		t.Error("placeholder image must not become an enclosure")
	}
}

func TestFeedUnknownFormat(t *testing.T) {
	if err := Feed(&bytes.Buffer{}, "json", FeedMeta{}, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
