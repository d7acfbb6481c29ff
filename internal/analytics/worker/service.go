// Package worker consumes outbox events from Pub/Sub and hands them to the
// analytics router.
package worker

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/router"
	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/idempotency"
)

const consumerName = "analytics"

type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	return fn(ctx, envelope)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type guard interface {
	Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error
}

// disposition is what happens to a delivery once processing ends.
type disposition int

const (
	ack disposition = iota
	nack
)

type Service struct {
	sub     receiver
	handler Handler
	guard   guard
	logg    *logger.Logger
}

func NewService(sub receiver, handler Handler, g guard, logg *logger.Logger) (*Service, error) {
	switch {
	case sub == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case g == nil:
		return nil, errors.New("idempotency guard is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{sub: sub, handler: handler, guard: g, logg: logg}, nil
}

// Run blocks until ctx is canceled or the subscription fails.
func (s *Service) Run(ctx context.Context) error {
	return s.sub.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process acks poison messages and unrouted event types so they are not
// redelivered forever. Only handler failures are nacked.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) disposition {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping analytics message")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       env.EventID,
		"event_type":     env.EventType,
		"aggregate_type": env.AggregateType,
		"aggregate_id":   env.AggregateID,
		"occurred_at":    env.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "dropping analytics message with non-uuid event id")
		return ack
	}

	err = s.guard.Once(ctx, consumerName, eventID, func(guardCtx context.Context) error {
		return s.handler.Handle(guardCtx, env)
	})
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event recorded")
	case errors.Is(err, idempotency.ErrAlreadyProcessed):
		s.logg.Debug(ctx, "analytics event already recorded")
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(ctx, "analytics event type not routed")
	default:
		s.logg.Error(ctx, "analytics handler failed", err)
		return nack
	}
	return ack
}
