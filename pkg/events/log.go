package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the structured log; used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a log-backed publisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, evt := range events {
		p.logger.Info("workflow_event",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type),
			zap.String("key", evt.Key),
			zap.String("actor_id", evt.ActorID),
			zap.Any("payload", evt.Payload),
		)
	}
	return nil
}
