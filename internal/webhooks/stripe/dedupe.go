package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// dedupeScope namespaces delivery markers under the idempotency keyspace.
const dedupeScope = "stripe-event"

var errMissingEventID = errors.New("stripe event id is required")

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// EventDeduper remembers which Stripe deliveries were already taken so a
// redelivery is acked without touching payments again.
type EventDeduper struct {
	markers markerStore
	ttl     time.Duration
	now     func() time.Time
}

// NewEventDeduper keeps markers for ttl; zero keeps them until evicted.
func NewEventDeduper(markers markerStore, ttl time.Duration) (*EventDeduper, error) {
	switch {
	case markers == nil:
		return nil, errors.New("marker store is required")
	case ttl < 0:
		return nil, fmt.Errorf("marker ttl %s is negative", ttl)
	}
	return &EventDeduper{markers: markers, ttl: ttl, now: time.Now}, nil
}

// CheckAndMark claims eventID and reports whether an earlier delivery had
// already claimed it.
func (d *EventDeduper) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errMissingEventID
	}
	claimed, err := d.markers.SetNX(ctx, d.markers.IdempotencyKey(dedupeScope, eventID), strconv.FormatInt(d.now().Unix(), 10), d.ttl)
	if err != nil {
		return false, fmt.Errorf("claim stripe event %s: %w", eventID, err)
	}
	return !claimed, nil
}

// Delete drops the claim after a failed delivery so Stripe's retry is processed.
func (d *EventDeduper) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errMissingEventID
	}
	return d.markers.Del(ctx, d.markers.IdempotencyKey(dedupeScope, eventID))
}
