// Package idempotency remembers which outbox events a consumer has already
// handled, so at-least-once delivery turns into effectively-once processing.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyProcessed is returned by Once when the consumer saw the event before.
var ErrAlreadyProcessed = errors.New("event already processed")

// markerStore is satisfied by *redis.Client.
type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Tracker stores one marker per (consumer, event) under
// af:idempotency:evt:processed:<consumer>:<event_id>.
type Tracker struct {
	markers markerStore
	ttl     time.Duration
	now     func() time.Time
}

func NewTracker(markers markerStore, ttl time.Duration) (*Tracker, error) {
	if markers == nil {
		return nil, errors.New("marker store is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("marker ttl %s is negative", ttl)
	}
	return &Tracker{markers: markers, ttl: ttl, now: time.Now}, nil
}

// Claim marks the event for consumer. It reports false when another delivery
// already holds the marker.
func (t *Tracker) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := t.markers.SetNX(ctx, key, t.now().UTC().Format(time.RFC3339), t.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops the marker so a redelivery is handled again.
func (t *Tracker) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return err
	}
	return t.markers.Del(ctx, key)
}

// Once runs fn only for the first delivery of eventID to consumer. When fn
// fails the marker is released.
func (t *Tracker) Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error {
	claimed, err := t.Claim(ctx, consumer, eventID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyProcessed
	}
	runErr := fn(ctx)
	if runErr == nil {
		return nil
	}
	if err := t.Release(context.WithoutCancel(ctx), consumer, eventID); err != nil {
		return errors.Join(runErr, fmt.Errorf("release marker: %w", err))
	}
	return runErr
}

func (t *Tracker) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return t.markers.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
