package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/r37344422-pixel/news/internal/domain"
)

func TestSchedulerRunsImmediatelyAndStops(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan struct{})

	s := NewScheduler(func(context.Context) (domain.RunReport, error) {
		if runs.Add(1) == 1 {
			close(first)
		}
		return domain.RunReport{}, nil
	}, time.Hour, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not happen immediately")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d", got)
	}
}

func TestSchedulerKeepsTickingAfterFailure(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(func(context.Context) (domain.RunReport, error) {
		if runs.Add(1) >= 3 {
			cancel()
		}
		return domain.RunReport{}, errors.New("store unavailable")
	}, 10*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		_ = s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stalled after failed runs")
	}
	if runs.Load() < 3 {
		t.Errorf("runs = %d", runs.Load())
	}
}

func TestNewSchedulerDefaultsInterval(t *testing.T) {
	s := NewScheduler(nil, 0, nil)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %s", s.interval)
	}
}
