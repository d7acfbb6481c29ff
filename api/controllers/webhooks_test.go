package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
)

const testSigningSecret = "whsec_test"

type fakeEventHandler struct {
	calls int
	err   error
}

func (f *fakeEventHandler) HandleEvent(context.Context, *stripe.Event) error {
	f.calls++
	return f.err
}

type fakeGuard struct {
	seen    map[string]bool
	deleted []string
}

func (g *fakeGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *fakeGuard) Delete(_ context.Context, eventID string) error {
	delete(g.seen, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

func signedWebhookRequest(t *testing.T, secret string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(stripe.CheckoutSession{ID: "cs_test_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	payload, err := json.Marshal(stripe.Event{
		ID:         "evt_test_1",
		Object:     "event",
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhookProcessesOnce(t *testing.T) {
	handler := &fakeEventHandler{}
	guard := &fakeGuard{seen: map[string]bool{}}
	h := StripeWebhook(handler, guard, testSigningSecret, testLogger())

	for i := 0; i < 2; i++ {
		rec := serve(h, signedWebhookRequest(t, testSigningSecret))
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	if handler.calls != 1 {
		t.Fatalf("expected one processing, got %d", handler.calls)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	handler := &fakeEventHandler{}
	h := StripeWebhook(handler, &fakeGuard{seen: map[string]bool{}}, testSigningSecret, testLogger())

	rec := serve(h, signedWebhookRequest(t, "whsec_other"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := signedWebhookRequest(t, testSigningSecret)
	req.Header.Del("Stripe-Signature")
	if rec := serve(h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", rec.Code)
	}
	if handler.calls != 0 {
		t.Fatalf("handler must not run for unverified payloads")
	}
}

func TestStripeWebhookReleasesKeyOnFailure(t *testing.T) {
	handler := &fakeEventHandler{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	guard := &fakeGuard{seen: map[string]bool{}}
	h := StripeWebhook(handler, guard, testSigningSecret, testLogger())

	rec := serve(h, signedWebhookRequest(t, testSigningSecret))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(guard.deleted) != 1 || guard.seen["evt_test_1"] {
		t.Fatalf("expected idempotency key released, deleted=%v", guard.deleted)
	}
}

func TestStripeWebhookUnavailableWithoutSecret(t *testing.T) {
	h := StripeWebhook(&fakeEventHandler{}, &fakeGuard{seen: map[string]bool{}}, "", testLogger())
	rec := serve(h, signedWebhookRequest(t, testSigningSecret))
	if rec.Code < http.StatusInternalServerError {
		t.Fatalf("expected a 5xx, got %d", rec.Code)
	}
}
