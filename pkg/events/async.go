package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/pkg/jobs"
)

// AsyncPublisher hands events to a worker queue so request handlers never wait on the broker.
type AsyncPublisher struct {
	next  Publisher
	queue *jobs.Queue
}

// NewAsyncPublisher wires a queue in front of next. Call Start before publishing.
func NewAsyncPublisher(next Publisher, cfg jobs.QueueConfig) *AsyncPublisher {
	p := &AsyncPublisher{next: next}
	p.queue = jobs.NewQueue("events", p.deliver, cfg)
	return p
}

// Start launches the delivery workers.
func (p *AsyncPublisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop drains queued events and stops the workers.
func (p *AsyncPublisher) Stop() {
	p.queue.Stop()
}

// Publish implements Publisher by enqueueing each event. It never waits for
// buffer space: events that do not fit are dropped and reported in the error.
func (p *AsyncPublisher) Publish(ctx context.Context, events ...Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %d events: %w", len(events), err)
	}
	var errs []error
	for _, evt := range events {
		if err := p.queue.TryEnqueue(jobs.Job{ID: evt.ID, Type: evt.Type, Payload: evt}); err != nil {
			errs = append(errs, fmt.Errorf("drop event %s (%s): %w", evt.ID, evt.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (p *AsyncPublisher) deliver(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(Event)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return p.next.Publish(ctx, evt)
}

// Multi fans an event batch out to several publishers and reports the first error.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, events ...Event) error {
	var firstErr error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events...); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Logged wraps a publisher so failures are logged instead of returned.
func Logged(next Publisher, logger *zap.Logger) Publisher {
	return loggedPublisher{next: next, logger: logger}
}

type loggedPublisher struct {
	next   Publisher
	logger *zap.Logger
}

func (l loggedPublisher) Publish(ctx context.Context, events ...Event) error {
	if err := l.next.Publish(ctx, events...); err != nil && l.logger != nil {
		l.logger.Warn("event publish failed", zap.Int("count", len(events)), zap.Error(err))
	}
	return nil
}
