package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r37344422-pixel/news/internal/aggregator"
	"github.com/r37344422-pixel/news/internal/crawler"
	"github.com/r37344422-pixel/news/pkg/feeds"
	"github.com/r37344422-pixel/news/pkg/httpclient"
	"github.com/r37344422-pixel/news/pkg/publishers"
	"github.com/r37344422-pixel/news/pkg/sanitize"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		runner, cleanup, err := a.newRunner(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := runner.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("ingestion run: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run ingestion on the configured interval until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		runner, cleanup, err := a.newRunner(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		a.log.InfoObj("scheduler started", "schedule_start", map[string]any{
			"interval": a.cfg.Schedule.Interval.String(),
			"sources":  len(a.cfg.Sources),
		})
		err = aggregator.NewScheduler(runner.Run, a.cfg.Schedule.Interval, a.log).Start(cmd.Context())
		a.log.InfoObj("scheduler stopped", "schedule_stop", nil)
		return err
	},
}

// newRunner wires fetcher, engine, optional enrichment and notifications onto the app's store.
func (a *app) newRunner(ctx context.Context) (*aggregator.Runner, func(), error) {
	cfg := a.cfg
	headers := map[string]string{"User-Agent": cfg.Fetch.UserAgent}
	client := httpclient.NewRestyClient(cfg.Fetch.Timeout, httpclient.WithBodyLimit(cfg.Fetch.MaxBodyBytes))

	parser := feeds.NewParser(
		feeds.WithSanitizer(sanitize.New(cfg.SummaryCharBudget)),
		feeds.WithPlaceholder(cfg.PlaceholderImage),
		feeds.WithLogger(a.log),
	)
	fetcher := feeds.NewHTTPFetcher(client, parser, feeds.FetcherOptions{
		RequestDelay: cfg.Fetch.RequestDelay,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Headers:      headers,
	})
	engine := aggregator.NewEngine(fetcher, a.log, aggregator.Options{
		MaxArticles: cfg.MaxArticles,
		Concurrency: cfg.Fetch.Concurrency,
		RunTimeout:  cfg.Fetch.RunTimeout,
	})

	opts := []aggregator.RunnerOption{aggregator.WithRunnerLogger(a.log)}
	if cfg.Enrich.Enabled {
		opts = append(opts, aggregator.WithEnricher(crawler.NewScraper(client, a.log, crawler.Options{
			Workers:      cfg.Enrich.Workers,
			RequestDelay: cfg.Fetch.RequestDelay,
			Placeholder:  cfg.PlaceholderImage,
			Headers:      headers,
		})))
	}

	cleanup := func() {}
	if cfg.PublishersFile != "" {
		d, err := publishers.NewDispatcherFromFile(ctx, cfg.PublishersFile, a.log)
		if err != nil {
			return nil, nil, fmt.Errorf("loading publishers: %w", err)
		}
		opts = append(opts, aggregator.WithNotifier(d, cfg.NotifyStrict))
		cleanup = func() {
			if err := d.Close(); err != nil {
				a.log.WarnObj("publisher close failed", "publisher_close_error", map[string]any{"error": err.Error()})
			}
		}
	}

	runner, err := aggregator.NewRunner(engine, a.store, cfg.Sources, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return runner, cleanup, nil
}
