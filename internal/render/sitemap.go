// Package render turns stored articles into publishable documents.
package render

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
)

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// DefaultPostPath is the article URL pattern; {id} is replaced by the escaped article id.
	DefaultPostPath = "/post/{id}"
	// DefaultSitemapLimit follows the common cap of the newest thousand URLs.
	DefaultSitemapLimit = 1000

	idPlaceholder = "{id}"
	lastmodLayout = "2006-01-02T15:04:05.000Z07:00"
)

// SitemapConfig configures sitemap rendering.
type SitemapConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	PostPath string `mapstructure:"post_path"`
	Limit    int    `mapstructure:"limit"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap writes a sitemap with the site root first, then one entry per article
// in the given order. Articles without an id are skipped.
func Sitemap(w io.Writer, cfg SitemapConfig, articles []domain.Article, now time.Time) error {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return errors.New("sitemap base url is required")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultSitemapLimit
	}

	set := urlset{XMLNS: sitemapNS}
	set.URLs = append(set.URLs, sitemapURL{
		Loc:        base + "/",
		LastMod:    now.UTC().Format(lastmodLayout),
		ChangeFreq: "hourly",
		Priority:   "1.00",
	})

	count := 0
	for _, a := range articles {
		if count == cfg.Limit {
			break
		}
		if a.ID == "" {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        PostURL(base, cfg.PostPath, a.ID),
			LastMod:    a.Published().Format(lastmodLayout),
			ChangeFreq: "hourly",
			Priority:   "0.80",
		})
		count++
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}
	return nil
}

// PostURL builds the public URL of an article. The id is query-escaped when the
// placeholder sits in the query string and path-escaped otherwise.
func PostURL(base, postPath, id string) string {
	if postPath == "" {
		postPath = DefaultPostPath
	}
	if !strings.HasPrefix(postPath, "/") {
		postPath = "/" + postPath
	}
	if !strings.Contains(postPath, idPlaceholder) {
		postPath = strings.TrimRight(postPath, "/") + "/" + idPlaceholder
	}

	escaped := url.PathEscape(id)
	if q := strings.Index(postPath, "?"); q >= 0 && q < strings.Index(postPath, idPlaceholder) {
		escaped = url.QueryEscape(id)
	}
	return strings.TrimRight(base, "/") + strings.ReplaceAll(postPath, idPlaceholder, escaped)
}
