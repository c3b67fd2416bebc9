package aggregator

import (
	"context"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
)

// DefaultInterval is the pause between scheduled runs.
const DefaultInterval = 15 * time.Minute

// RunFunc performs one run.
type RunFunc func(ctx context.Context) (domain.RunReport, error)

// Scheduler triggers runs on a fixed interval. Runs never overlap.
type Scheduler struct {
	run      RunFunc
	interval time.Duration
	log      logger.Logger
}

// NewScheduler builds a Scheduler. Non-positive intervals use DefaultInterval.
func NewScheduler(run RunFunc, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{run: run, interval: interval, log: log}
}

// Start runs once immediately, then every interval until ctx is cancelled.
// A failed run is logged and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.run(ctx); err != nil {
		s.log.ErrorObj("scheduled run failed", "schedule_run_error", map[string]any{
			"error":         err.Error(),
			"next_run_in_s": s.interval.Seconds(),
		})
	}
}
