package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	gfeeds "github.com/gorilla/feeds"

	"github.com/r37344422-pixel/news/internal/domain"
)

const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
)

// FeedMeta describes the re-exported channel.
type FeedMeta struct {
	Title       string
	BaseURL     string
	Description string
	// PostPath, when set with BaseURL, links items to the site instead of the original article.
	PostPath string
}

// Feed writes articles as an Atom or RSS document in the given order.
func Feed(w io.Writer, format string, meta FeedMeta, articles []domain.Article) error {
	feed := &gfeeds.Feed{
		Title:       meta.Title,
		Link:        &gfeeds.Link{Href: meta.BaseURL},
		Description: meta.Description,
		Items:       make([]*gfeeds.Item, 0, len(articles)),
	}
	if feed.Title == "" {
		feed.Title = "Latest news"
	}

	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		published := a.Published()
		if feed.Updated.Before(published) {
			feed.Updated = published
		}

		link := a.Link
		if meta.BaseURL != "" && meta.PostPath != "" {
			link = PostURL(meta.BaseURL, meta.PostPath, a.ID)
		}
		item := &gfeeds.Item{
			Id:          "urn:news:" + a.ID,
			Title:       a.Title,
			Link:        &gfeeds.Link{Href: link},
			Source:      &gfeeds.Link{Href: a.Link},
			Author:      &gfeeds.Author{Name: a.Source},
			Description: a.Summary,
			Created:     published,
			Updated:     published,
		}
		if strings.HasPrefix(a.Image, "http://") || strings.HasPrefix(a.Image, "https://") {
			item.Enclosure = &gfeeds.Enclosure{Url: a.Image, Type: imageType(a.Image), Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}
	if feed.Updated.IsZero() {
		feed.Updated = time.Now().UTC()
	}
	feed.Created = feed.Updated

	var (
		out string
		err error
	)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatAtom:
		out, err = feed.ToAtom()
	case FormatRSS:
		out, err = feed.ToRss()
	default:
		return fmt.Errorf("unsupported feed format %q", format)
	}
	if err != nil {
		return fmt.Errorf("render %s feed: %w", format, err)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}

func imageType(u string) string {
	lower := strings.ToLower(u)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
