package domain

import "time"

// Domain contains core models and interfaces.

// Article is the canonical normalized news item. PubDate is epoch milliseconds.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	PubDate int64  `json:"pubDate"`
	Source  string `json:"source"`
	Image   string `json:"image"`
	Summary string `json:"summary"`
}

// Published returns PubDate as a UTC time.
func (a Article) Published() time.Time {
	return time.UnixMilli(a.PubDate).UTC()
}

// DateBucket returns the YYYYMMDD key of the UTC day the article was published.
func (a Article) DateBucket() string {
	return a.Published().Format("20060102")
}

// Source is one configured feed endpoint.
type Source struct {
	Name string `json:"name" mapstructure:"name" yaml:"name"`
	URL  string `json:"url" mapstructure:"url" yaml:"url"`
}

// WriteSet is the output of one run handed to the persistence layer.
type WriteSet struct {
	Articles map[string]Article
	ByDate   map[string]map[string]bool
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Articles      int            `json:"articles"`
	SourceCounts  map[string]int `json:"source_counts"`
	FailedSources []string       `json:"failed_sources"`
}
