// Package registry knows, for every outbox event type, which aggregate it
// belongs to, which topic carries it and how its payload decodes.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload type.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a decoded outbox row ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func describe[P any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      event,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(P) },
	}
}

// NewEventRegistry routes payment events to the billing topic and everything
// else to the asset events topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	if cfg.AssetEventsTopic == "" {
		missing = append(missing, errors.New("asset events topic is required"))
	}
	if cfg.BillingTopic == "" {
		missing = append(missing, errors.New("billing topic is required"))
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	assets := cfg.AssetEventsTopic
	descriptors := []EventDescriptor{
		describe[payloads.RequestCreatedEvent](enums.EventRequestCreated, enums.AggregateAssetRequest, assets),
		describe[payloads.RequestDecidedEvent](enums.EventRequestApproved, enums.AggregateAssetRequest, assets),
		describe[payloads.RequestDecidedEvent](enums.EventRequestRejected, enums.AggregateAssetRequest, assets),
		describe[payloads.AssetAssignedEvent](enums.EventAssetAssigned, enums.AggregateAssignment, assets),
		describe[payloads.AssetReturnedEvent](enums.EventAssetReturned, enums.AggregateAssignment, assets),
		describe[payloads.AffiliationEvent](enums.EventAffiliationActivated, enums.AggregateAffiliation, assets),
		describe[payloads.AffiliationEvent](enums.EventAffiliationRemoved, enums.AggregateAffiliation, assets),
		describe[payloads.PaymentConfirmedEvent](enums.EventPaymentConfirmed, enums.AggregatePayment, cfg.BillingTopic),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics returns the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{})
	for _, d := range r.entries {
		set[d.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure is non-retryable since the row will not change.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	switch {
	case !ok:
		return nil, reject("unsupported event type %s", row.EventType)
	case desc.AggregateType != row.AggregateType:
		return nil, reject("aggregate mismatch: expected %s got %s", desc.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, reject("missing aggregate_id")
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, reject("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, reject("payload missing for %s", row.EventType)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, reject("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

func reject(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
