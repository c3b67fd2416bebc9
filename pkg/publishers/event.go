package publishers

import (
	"context"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
)

// EventTypeRunCompleted tags events sent after a run was persisted.
const EventTypeRunCompleted = "harvest.run.completed"

// Logger is the logging contract publishers write to.
type Logger = logger.Logger

// Event is the payload delivered to every publisher.
type Event struct {
	Type          string         `json:"type"`
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	ArticleCount  int            `json:"article_count"`
	SourceCounts  map[string]int `json:"source_counts,omitempty"`
	FailedSources []string       `json:"failed_sources,omitempty"`
}

// NewRunEvent converts a run report into a publishable event.
func NewRunEvent(r domain.RunReport) Event {
	return Event{
		Type:          EventTypeRunCompleted,
		RunID:         r.RunID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		ArticleCount:  r.Articles,
		SourceCounts:  r.SourceCounts,
		FailedSources: r.FailedSources,
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"run_id":     e.RunID,
	}
}

// Publisher delivers events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
