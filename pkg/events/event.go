// Package events carries workflow notifications to downstream consumers
// (reporting, notifications) without coupling the request path to them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the approval workflow and the performance ledger.
const (
	TypeApplicationCreated   = "application.created"
	TypeApplicationSubmitted = "application.submitted"
	TypeApplicationDecided   = "application.decided"
	TypeAwardCreated         = "award.created"
	TypeAwardDecided         = "award.decided"
	TypeLedgerAdjusted       = "ledger.adjusted"
	TypeRulesUpdated         = "rules.updated"
	TypeCompetitionEdited    = "competition.edited"
)

// Event is the envelope written to the event stream.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Key        string                 `json:"key"`
	ActorID    string                 `json:"actorId,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// New builds an event keyed by the aggregate id so consumers see per-record ordering.
func New(eventType, key, actorID string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}
