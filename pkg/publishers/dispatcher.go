package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/r37344422-pixel/news/internal/domain"
)

// Dispatcher fans a run report out to every publisher concurrently.
type Dispatcher struct {
	pubs []Publisher
	log  Logger
}

// NewDispatcher wraps already-built publishers.
func NewDispatcher(pubs []Publisher, log Logger) *Dispatcher {
	return &Dispatcher{pubs: pubs, log: ensureLogger(log)}
}

// NewDispatcherFromFile loads the publishers file and builds every enabled entry.
func NewDispatcherFromFile(ctx context.Context, path string, log Logger) (*Dispatcher, error) {
	cfgs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	pubs, err := BuildAll(ctx, DefaultRegistry(), cfgs, log)
	if err != nil {
		return nil, err
	}
	return NewDispatcher(pubs, log), nil
}

// Len reports the number of publishers.
func (d *Dispatcher) Len() int { return len(d.pubs) }

// Notify publishes the report's event to all publishers and joins their errors.
func (d *Dispatcher) Notify(ctx context.Context, report domain.RunReport) error {
	if len(d.pubs) == 0 {
		return nil
	}
	evt := NewRunEvent(report)

	errs := make([]error, len(d.pubs))
	var wg sync.WaitGroup
	for i, p := range d.pubs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				d.log.WarnObj("publisher failed", "publisher_error", map[string]any{
					"publisher_id": p.ID(),
					"type":         p.Type(),
					"run_id":       evt.RunID,
					"error":        err.Error(),
				})
				errs[i] = fmt.Errorf("publisher %q: %w", p.ID(), err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Close releases every publisher.
func (d *Dispatcher) Close() error {
	return closeAll(d.pubs)
}
