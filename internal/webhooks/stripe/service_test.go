package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/assetflow-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
)

type stubConfirmer struct {
	sessions []string
	err      error
}

func (s *stubConfirmer) ConfirmSession(_ context.Context, sessionID string) (*payments.ConfirmResult, error) {
	s.sessions = append(s.sessions, sessionID)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.ConfirmResult{PackageLimit: 15}, nil
}

func sessionEvent(t *testing.T, eventType stripe.EventType, session stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func paidSession(id string) stripe.CheckoutSession {
	return stripe.CheckoutSession{
		ID:            id,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{payments.MetadataHREmail: "hr@acme.io"},
	}
}

func newService(t *testing.T, confirmer *stubConfirmer) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Payments: confirmer})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestHandleEventConfirmsPaidSession(t *testing.T) {
	confirmer := &stubConfirmer{}
	svc := newService(t, confirmer)

	for _, eventType := range []stripe.EventType{
		stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
	} {
		if err := svc.HandleEvent(context.Background(), sessionEvent(t, eventType, paidSession("cs_1"))); err != nil {
			t.Fatalf("%s: %v", eventType, err)
		}
	}
	if len(confirmer.sessions) != 2 || confirmer.sessions[0] != "cs_1" {
		t.Fatalf("unexpected confirmations %v", confirmer.sessions)
	}
}

func TestHandleEventSkipsUnrelatedEvents(t *testing.T) {
	confirmer := &stubConfirmer{}
	svc := newService(t, confirmer)
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, paidSession("cs_1"))); err != nil {
		t.Fatalf("expired: %v", err)
	}
	unpaid := paidSession("cs_2")
	unpaid.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	if err := svc.HandleEvent(ctx, sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, unpaid)); err != nil {
		t.Fatalf("unpaid: %v", err)
	}
	foreign := paidSession("cs_3")
	foreign.Metadata = nil
	if err := svc.HandleEvent(ctx, sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, foreign)); err != nil {
		t.Fatalf("foreign: %v", err)
	}
	if len(confirmer.sessions) != 0 {
		t.Fatalf("expected no confirmations, got %v", confirmer.sessions)
	}
}

func TestHandleEventTreatsReplayAsSuccess(t *testing.T) {
	confirmer := &stubConfirmer{err: pkgerrors.New(pkgerrors.CodePaymentAlreadyConfirmed, "payment already confirmed")}
	svc := newService(t, confirmer)
	if err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, paidSession("cs_1"))); err != nil {
		t.Fatalf("expected replay to be acked, got %v", err)
	}

	confirmer.err = pkgerrors.New(pkgerrors.CodeDependency, "db down")
	if err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, paidSession("cs_1"))); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestHandleEventAcksSessionPaidAfterUpgrade(t *testing.T) {
	confirmer := &stubConfirmer{err: pkgerrors.New(pkgerrors.CodeAlreadyUpgraded, "package has already been upgraded")}
	svc := newService(t, confirmer)
	if err := svc.HandleEvent(context.Background(), sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, paidSession("cs_2"))); err != nil {
		t.Fatalf("expected upgraded account to be acked, got %v", err)
	}
	if len(confirmer.sessions) != 1 {
		t.Fatalf("expected one confirmation attempt, got %v", confirmer.sessions)
	}
}

func TestHandleEventRejectsEmptyEvent(t *testing.T) {
	svc := newService(t, &stubConfirmer{})
	if err := svc.HandleEvent(context.Background(), nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "af:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func TestEventDeduperClaimsOnce(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	deduper, err := NewEventDeduper(store, time.Hour)
	if err != nil {
		t.Fatalf("deduper: %v", err)
	}
	deduper.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	seen, err := deduper.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	if got := store.data["af:idempotency:stripe-event:evt_1"]; got != "1700000000" {
		t.Fatalf("unexpected marker %q", got)
	}
	if seen, _ = deduper.CheckAndMark(ctx, "evt_1"); !seen {
		t.Fatal("expected redelivery to be seen")
	}
	if err := deduper.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if seen, _ = deduper.CheckAndMark(ctx, "evt_1"); seen {
		t.Fatal("expected delete to allow a retry")
	}
}

func TestEventDeduperValidation(t *testing.T) {
	if _, err := NewEventDeduper(nil, time.Hour); err == nil {
		t.Fatal("expected missing store to fail")
	}
	if _, err := NewEventDeduper(&memoryStore{}, -time.Second); err == nil {
		t.Fatal("expected negative ttl to fail")
	}
	deduper, _ := NewEventDeduper(&memoryStore{data: map[string]string{}}, 0)
	if _, err := deduper.CheckAndMark(context.Background(), ""); err != errMissingEventID {
		t.Fatalf("expected missing id error, got %v", err)
	}
}
