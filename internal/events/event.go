// Package events carries workflow notifications from committed mutations to
// connected dashboards. Delivery is at-most-once: a session that is not
// subscribed, or is too slow to drain its buffer, misses the event and must
// reload.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

const (
	Source  = "training-workflow-service"
	Version = "1.0"

	// Topic is the bus topic every workflow event is published on.
	Topic = "workflow.events"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID        string              `json:"id"`
	Type      models.EventName    `json:"type"`
	Source    string              `json:"source"`
	Version   string              `json:"version"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   models.EventPayload `json:"payload"`
}

func NewEvent(name models.EventName, payload models.EventPayload) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      name,
		Source:    Source,
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Publisher hands an event to the broadcaster. Implementations must not block
// on slow receivers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber opens one session stream. The channel closes when ctx ends or
// the bus shuts down.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}
