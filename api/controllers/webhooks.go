package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const maxWebhookBytes = 64 << 10

type StripeEventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type StripeEventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// StripeWebhook handles POST /webhooks/stripe. Deliveries are verified against
// the signing secret and deduplicated by event id.
func StripeWebhook(svc StripeEventHandler, guard StripeEventGuard, signingSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || guard == nil || signingSecret == "" {
			responses.WriteError(ctx, logg, w, serviceUnavailable("stripe webhook"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, signingSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}

		seen, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency"))
			return
		}
		if seen {
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if delErr := guard.Delete(context.WithoutCancel(ctx), event.ID); delErr != nil && logg != nil {
				logg.Error(ctx, "release webhook idempotency key", delErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
