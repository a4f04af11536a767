// Package outbox delivers completion events written inside progress
// transactions to the consumers that react to them.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

const (
	DefaultMaxAttempts = 5
	defaultBatchSize   = 100
)

// Consumer reacts to one completion event. Name is recorded in the event's
// completed consumers, so it must not change between releases.
type Consumer interface {
	Name() string
	Handle(ctx context.Context, event models.ProgressEvent) error
}

// Summary reports what one Dispatch call did.
type Summary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type Dispatcher struct {
	mu          sync.Mutex
	store       repository.Store
	consumers   []Consumer
	maxAttempts int
	batchSize   int
	now         func() time.Time
}

// NewDispatcher runs consumers in the order given for every pending event.
func NewDispatcher(store repository.Store, maxAttempts int, consumers ...Consumer) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Dispatcher{
		store:       store,
		consumers:   consumers,
		maxAttempts: maxAttempts,
		batchSize:   defaultBatchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch delivers every pending event, oldest first. Consumer failures are
// recorded on the event and counted in Failed; only storage failures are
// returned.
func (d *Dispatcher) Dispatch(ctx context.Context) (Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logger.FromContext(ctx).WithPrefix("outbox")
	var summary Summary

	events, err := d.store.Repos().Events.Pending(ctx, d.maxAttempts, d.batchSize)
	if err != nil {
		log.Error("failed to load pending events: %v", err)
		return summary, err
	}
	if len(events) == 0 {
		return summary, nil
	}
	log.Debug("dispatching %d events", len(events))

	for i := range events {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		event := &events[i]
		delivered := d.deliver(ctx, event)

		if err := d.store.Repos().Events.Update(ctx, event); err != nil {
			log.Error("failed to record delivery: event_id=%s, err=%v", event.ID, err)
			return summary, err
		}
		if delivered {
			summary.Processed++
		} else {
			summary.Failed++
		}
	}

	log.Info("dispatch finished: processed=%d, failed=%d", summary.Processed, summary.Failed)
	return summary, nil
}

// deliver runs the consumers that have not yet succeeded for event and
// reports whether all of them now have.
func (d *Dispatcher) deliver(ctx context.Context, event *models.ProgressEvent) bool {
	log := logger.FromContext(ctx).WithPrefix("outbox").WithFields(map[string]any{
		"event_id": event.ID.String(),
		"kind":     string(event.Kind),
	})
	if event.LastErrors == nil {
		event.LastErrors = models.StringMap{}
	}

	done := true
	for _, c := range d.consumers {
		name := c.Name()
		if event.CompletedConsumers.Contains(name) {
			continue
		}

		start := time.Now()
		if err := handle(logger.NewContext(ctx, log.WithField("consumer", name)), c, *event); err != nil {
			log.Warn("consumer %s failed after %v: %v", name, time.Since(start), err)
			event.LastErrors[name] = err.Error()
			done = false
			continue
		}
		log.Debug("consumer %s finished in %v", name, time.Since(start))
		delete(event.LastErrors, name)
		event.CompletedConsumers = append(event.CompletedConsumers, name)
	}

	event.Attempts++
	if done {
		processedAt := d.now()
		event.ProcessedAt = &processedAt
	}
	return done
}

func handle(ctx context.Context, c Consumer, event models.ProgressEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("consumer panicked: %v", p)
		}
	}()
	return c.Handle(ctx, event)
}
