package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
)

var errMalformed = errors.New("malformed analytics message")

// decodeMessage turns a delivery into an Envelope. Routing metadata comes
// from the attributes set by the outbox publisher, the body carries the
// stored payload envelope.
func decodeMessage(msg *gcppubsub.Message) (types.Envelope, error) {
	var body outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return types.Envelope{}, fmt.Errorf("%w: body: %v", errMalformed, err)
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("%w: event_type: %v", errMalformed, err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("%w: aggregate_type: %v", errMalformed, err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return types.Envelope{}, fmt.Errorf("%w: aggregate_id missing", errMalformed)
	}

	eventID := strings.TrimSpace(body.EventID)
	if eventID == "" {
		eventID = attr("event_id")
	}
	if eventID == "" {
		return types.Envelope{}, fmt.Errorf("%w: event_id missing", errMalformed)
	}

	occurredAt := body.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	return types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         body.Actor,
		Payload:       body.Data,
	}, nil
}
