package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

const envelopeVersion = 1

// ActorRef identifies who caused the state change.
type ActorRef struct {
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// as the message body. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DomainEvent is what services hand to Emit. Data is any JSON-marshalable
// payload from the payloads package.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("unknown event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("unknown aggregate type %q", e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return errors.New("aggregate id required")
	}
	return nil
}

// row seals the event into an outbox row with a fresh id.
func (e DomainEvent) row(now time.Time) (models.OutboxEvent, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("marshal %s payload: %w", e.EventType, err)
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	version := e.Version
	if version <= 0 {
		version = envelopeVersion
	}

	id := uuid.New()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurred.UTC(),
		Actor:      e.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("marshal %s envelope: %w", e.EventType, err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       payload,
	}, nil
}
