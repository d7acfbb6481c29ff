package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/assetflow-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

type sessionConfirmer interface {
	ConfirmSession(ctx context.Context, sessionID string) (*payments.ConfirmResult, error)
}

type ServiceParams struct {
	Payments sessionConfirmer
	Logger   *logger.Logger
}

// Service applies paid Checkout Sessions reported by Stripe so an upgrade
// lands even when the client never calls confirm-payment.
type Service struct {
	payments sessionConfirmer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// HandleEvent ignores event types other than paid session completions.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	if session.Metadata[payments.MetadataHREmail] == "" {
		return nil
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// async methods settle later and arrive as async_payment_succeeded
		s.log(ctx, event, session.ID, "checkout session completed without payment")
		return nil
	}

	_, err := s.payments.ConfirmSession(ctx, session.ID)
	switch {
	case err == nil:
		s.log(ctx, event, session.ID, "checkout session applied")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodePaymentAlreadyConfirmed):
		s.log(ctx, event, session.ID, "checkout session already applied")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeAlreadyUpgraded):
		// paid twice; redelivery cannot change the outcome
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"stripe_event_id": event.ID,
				"session_id":      session.ID,
			}), "checkout session paid after account was already upgraded")
		}
		return nil
	default:
		return err
	}
}

func (s *Service) log(ctx context.Context, event *stripe.Event, sessionID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
		"session_id":        sessionID,
	}), msg)
}
