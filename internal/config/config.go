// Package config loads harvester settings from a YAML file, .env and HARVESTER_* variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
	"github.com/r37344422-pixel/news/internal/render"
	"github.com/r37344422-pixel/news/internal/store"
	"github.com/r37344422-pixel/news/pkg/feeds"
	"github.com/r37344422-pixel/news/pkg/httpclient"
	"github.com/r37344422-pixel/news/pkg/sanitize"
)

const (
	EnvPrefix     = "HARVESTER"
	EnvConfigPath = EnvPrefix + "_CONFIG"

	defaultConfigName = "harvester"
)

var (
	// ErrNoSources is returned when no feed source is configured.
	ErrNoSources = errors.New("no sources configured")
)

// Config is the full harvester configuration.
type Config struct {
	Sources           []domain.Source      `mapstructure:"sources"`
	MaxArticles       int                  `mapstructure:"max_articles"`
	SummaryCharBudget int                  `mapstructure:"summary_char_budget"`
	PlaceholderImage  string               `mapstructure:"placeholder_image"`
	Fetch             FetchConfig          `mapstructure:"fetch"`
	Store             store.Config         `mapstructure:"store"`
	Schedule          ScheduleConfig       `mapstructure:"schedule"`
	Enrich            EnrichConfig         `mapstructure:"enrich"`
	Sitemap           render.SitemapConfig `mapstructure:"sitemap"`
	PublishersFile    string               `mapstructure:"publishers_file"`
	NotifyStrict      bool                 `mapstructure:"notify_strict"`
	Log               LogConfig            `mapstructure:"log"`
}

type FetchConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
}

type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type EnrichConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Workers int  `mapstructure:"workers"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var defaults = map[string]any{
	"max_articles":         1000,
	"summary_char_budget":  sanitize.DefaultBudget,
	"placeholder_image":    feeds.DefaultPlaceholderImage,
	"fetch.concurrency":    4,
	"fetch.timeout":        15 * time.Second,
	"fetch.run_timeout":    2 * time.Minute,
	"fetch.request_delay":  time.Duration(0),
	"fetch.user_agent":     httpclient.DefaultUserAgent,
	"fetch.max_body_bytes": 5 << 20,
	"store.driver":         store.DriverBolt,
	"store.path":           "data/harvester.db",
	"store.url":            "",
	"store.auth":           "",
	"store.timeout":        30 * time.Second,
	"schedule.interval":    15 * time.Minute,
	"enrich.enabled":       false,
	"enrich.workers":       4,
	"sitemap.base_url":     "",
	"sitemap.post_path":    render.DefaultPostPath,
	"sitemap.limit":        render.DefaultSitemapLimit,
	"publishers_file":      "",
	"notify_strict":        false,
	"log.level":            "info",
	"log.encoding":         "json",
	"log.file":             "",
	"log.max_size_mb":      100,
	"log.max_backups":      3,
	"log.max_age_days":     28,
}

// Load reads configuration. path may be empty, in which case HARVESTER_CONFIG
// and then ./harvester.yaml are tried; a missing default file is not an error.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// sanitize trims strings and clamps non-positive numbers back to defaults.
func (c *Config) sanitize() {
	for i := range c.Sources {
		c.Sources[i].Name = strings.TrimSpace(c.Sources[i].Name)
		c.Sources[i].URL = strings.TrimSpace(c.Sources[i].URL)
		if c.Sources[i].Name == "" {
			c.Sources[i].Name = hostOf(c.Sources[i].URL)
		}
	}

	clampInt(&c.MaxArticles, defaults["max_articles"].(int))
	clampInt(&c.SummaryCharBudget, defaults["summary_char_budget"].(int))
	c.PlaceholderImage = orDefault(c.PlaceholderImage, feeds.DefaultPlaceholderImage)

	clampInt(&c.Fetch.Concurrency, defaults["fetch.concurrency"].(int))
	clampDuration(&c.Fetch.Timeout, defaults["fetch.timeout"].(time.Duration))
	clampDuration(&c.Fetch.RunTimeout, defaults["fetch.run_timeout"].(time.Duration))
	if c.Fetch.RequestDelay < 0 {
		c.Fetch.RequestDelay = 0
	}
	c.Fetch.UserAgent = orDefault(c.Fetch.UserAgent, httpclient.DefaultUserAgent)
	clampInt(&c.Fetch.MaxBodyBytes, defaults["fetch.max_body_bytes"].(int))

	c.Store.Driver = strings.ToLower(orDefault(c.Store.Driver, store.DriverBolt))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	c.Store.URL = strings.TrimSpace(c.Store.URL)
	c.Store.Auth = strings.TrimSpace(c.Store.Auth)
	clampDuration(&c.Store.Timeout, defaults["store.timeout"].(time.Duration))

	clampDuration(&c.Schedule.Interval, defaults["schedule.interval"].(time.Duration))
	clampInt(&c.Enrich.Workers, defaults["enrich.workers"].(int))

	c.Sitemap.BaseURL = strings.TrimRight(strings.TrimSpace(c.Sitemap.BaseURL), "/")
	c.Sitemap.PostPath = orDefault(c.Sitemap.PostPath, render.DefaultPostPath)
	clampInt(&c.Sitemap.Limit, render.DefaultSitemapLimit)

	c.PublishersFile = strings.TrimSpace(c.PublishersFile)

	c.Log.Level = strings.ToLower(orDefault(c.Log.Level, "info"))
	c.Log.Encoding = strings.ToLower(orDefault(c.Log.Encoding, "json"))
	c.Log.File = strings.TrimSpace(c.Log.File)
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("sources[%d]: url is required", i)
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sources[%d]: url %q must be absolute http(s)", i, src.URL)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, src.Name)
		}
		seen[src.Name] = struct{}{}
	}

	switch c.Store.Driver {
	case store.DriverBolt:
	case store.DriverFirebase:
		if c.Store.URL == "" {
			return errors.New("store.url is required for the firebase driver")
		}
	default:
		return fmt.Errorf("store.driver %q not supported", c.Store.Driver)
	}
	return nil
}

// LoggerOptions maps the log section onto logger options.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		Encoding:   c.Log.Encoding,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

func hostOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return raw
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func clampInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func clampDuration(v *time.Duration, def time.Duration) {
	if *v <= 0 {
		*v = def
	}
}
