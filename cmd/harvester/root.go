package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/r37344422-pixel/news/internal/config"
	"github.com/r37344422-pixel/news/internal/logger"
	"github.com/r37344422-pixel/news/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "harvester",
	Short:         "RSS/Atom news harvester",
	Long:          "harvester fetches configured RSS and Atom feeds, normalizes and deduplicates their items, and keeps the newest articles in a document store.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default $HARVESTER_CONFIG or ./harvester.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sitemapCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(latestCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "harvester %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every command shares: configuration, logger and the single store client.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	store store.Store
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.LoggerOptions())
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &app{cfg: cfg, log: log, store: st}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WarnObj("store close failed", "store_close_error", map[string]any{"error": err.Error()})
	}
	_ = a.log.Sync()
}
