package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/r37344422-pixel/news/internal/render"
)

var (
	flagSitemapOut string
	flagFeedOut    string
	flagBaseURL    string
	flagFeedFormat string
	flagFeedTitle  string
	flagFeedLimit  int
	flagLatestN    int
)

func init() {
	sitemapCmd.Flags().StringVarP(&flagSitemapOut, "output", "o", "sitemap.xml", "output file, - for stdout")
	sitemapCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "site base url (overrides sitemap.base_url)")

	feedCmd.Flags().StringVarP(&flagFeedOut, "output", "o", "-", "output file, - for stdout")
	feedCmd.Flags().StringVar(&flagFeedFormat, "format", render.FormatAtom, "feed format: atom or rss")
	feedCmd.Flags().StringVar(&flagFeedTitle, "title", "Latest news", "feed title")
	feedCmd.Flags().IntVarP(&flagFeedLimit, "limit", "n", 50, "number of articles")
	feedCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "site base url (overrides sitemap.base_url)")

	latestCmd.Flags().IntVarP(&flagLatestN, "limit", "n", 20, "number of articles")
}

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Render sitemap.xml from the stored articles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.cfg.Sitemap
		if flagBaseURL != "" {
			cfg.BaseURL = flagBaseURL
		}
		articles, err := a.store.Latest(cmd.Context(), cfg.Limit)
		if err != nil {
			return fmt.Errorf("reading articles: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), flagSitemapOut, func(w io.Writer) error {
			return render.Sitemap(w, cfg, articles, time.Now())
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Render an Atom or RSS feed of the latest stored articles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		articles, err := a.store.Latest(cmd.Context(), flagFeedLimit)
		if err != nil {
			return fmt.Errorf("reading articles: %w", err)
		}
		meta := render.FeedMeta{
			Title:    flagFeedTitle,
			BaseURL:  a.cfg.Sitemap.BaseURL,
			PostPath: a.cfg.Sitemap.PostPath,
		}
		if flagBaseURL != "" {
			meta.BaseURL = flagBaseURL
		}
		return writeOutput(cmd.OutOrStdout(), flagFeedOut, func(w io.Writer) error {
			return render.Feed(w, flagFeedFormat, meta, articles)
		})
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the newest stored articles as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		articles, err := a.store.Latest(cmd.Context(), flagLatestN)
		if err != nil {
			return fmt.Errorf("reading articles: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, art := range articles {
			if err := enc.Encode(art); err != nil {
				return err
			}
		}
		return nil
	},
}

// writeOutput renders to stdout for "-" and otherwise to a temp file renamed into place.
func writeOutput(stdout io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
