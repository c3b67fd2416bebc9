// Package store persists the article collection and its per-day index.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
)

const (
	DriverBolt     = "bolt"
	DriverFirebase = "firebase"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is a keyed document store. Upserts merge and never delete.
type Store interface {
	UpsertArticles(ctx context.Context, articles map[string]domain.Article) error
	UpsertDateIndex(ctx context.Context, index map[string]map[string]bool) error
	// Latest returns up to limit articles, newest first.
	Latest(ctx context.Context, limit int) ([]domain.Article, error)
	// IDsForDate lists the article ids indexed under a YYYYMMDD bucket.
	IDsForDate(ctx context.Context, bucket string) ([]string, error)
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver  string        `mapstructure:"driver"`
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Auth    string        `mapstructure:"auth"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Open builds the store named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverBolt:
		return OpenBolt(cfg.Path, cfg.Timeout)
	case DriverFirebase:
		return NewFirebase(cfg.URL, cfg.Auth, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
