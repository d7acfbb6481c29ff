package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
)

var ErrEmptyPayload = errors.New("empty event payload")

// Envelope is a Pub/Sub delivery after attribute and body decoding.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       json.RawMessage
}

// Decode unmarshals the domain payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return fmt.Errorf("%w: %s", ErrEmptyPayload, e.EventType)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// ActorEmail returns the producing user's email or "".
func (e Envelope) ActorEmail() string {
	if e.Actor == nil {
		return ""
	}
	return e.Actor.Email
}
