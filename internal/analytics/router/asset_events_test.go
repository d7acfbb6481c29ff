package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/payloads"
)

func TestAssetAssignedWritesRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newSilentRouter(t, writer)

	assignedAt := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	event := payloads.AssetAssignedEvent{
		AssignmentID:      uuid.New(),
		AssetID:           uuid.New(),
		AssetName:         "Laptop",
		EmployeeEmail:     "emp@acme.test",
		HREmail:           "hr@acme.test",
		CompanyName:       "Acme",
		Source:            enums.AssignmentSourceRequest,
		AvailableQuantity: 4,
		AssignedAt:        assignedAt,
	}
	env := envelopeFor(t, enums.EventAssetAssigned, enums.AggregateAssignment, event)

	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.inserted) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.inserted))
	}
	row := writer.inserted[0]
	if row.EventID != env.EventID || row.EventType != "asset_assigned" {
		t.Fatalf("unexpected identity %+v", row)
	}
	if !row.OccurredAt.Equal(assignedAt) {
		t.Fatalf("expected assigned_at timestamp, got %v", row.OccurredAt)
	}
	if row.CompanyName == nil || *row.CompanyName != "Acme" {
		t.Fatalf("unexpected company %v", row.CompanyName)
	}
	if row.Source == nil || *row.Source != "request" {
		t.Fatalf("unexpected source %v", row.Source)
	}
	if row.Quantity == nil || *row.Quantity != 4 {
		t.Fatalf("unexpected quantity %v", row.Quantity)
	}
	if row.ActorEmail == nil || *row.ActorEmail != "hr@acme.test" {
		t.Fatalf("unexpected actor %v", row.ActorEmail)
	}
	if !row.Payload.Valid {
		t.Fatal("expected payload json")
	}
}

func TestPaymentConfirmedFallsBackToEnvelopeTime(t *testing.T) {
	writer := &fakeWriter{}
	router := newSilentRouter(t, writer)

	env := envelopeFor(t, enums.EventPaymentConfirmed, enums.AggregatePayment, payloads.PaymentConfirmedEvent{
		PaymentID:    uuid.New(),
		HREmail:      "hr@acme.test",
		PackageName:  "standard",
		PackageLimit: 15,
		AmountCents:  800,
	})

	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if !row.OccurredAt.Equal(env.OccurredAt) {
		t.Fatalf("expected envelope timestamp, got %v", row.OccurredAt)
	}
	if row.AmountCents == nil || *row.AmountCents != 800 {
		t.Fatalf("unexpected amount %v", row.AmountCents)
	}
	if row.PackageName == nil || *row.PackageName != "standard" {
		t.Fatalf("unexpected package %v", row.PackageName)
	}
	if row.EmployeeEmail != nil {
		t.Fatalf("payment rows carry no employee, got %v", *row.EmployeeEmail)
	}
}

func TestAffiliationRemovedRecordsStatus(t *testing.T) {
	writer := &fakeWriter{}
	router := newSilentRouter(t, writer)

	env := envelopeFor(t, enums.EventAffiliationRemoved, enums.AggregateAffiliation, payloads.AffiliationEvent{
		AffiliationID:    uuid.New(),
		EmployeeEmail:    "emp@acme.test",
		CompanyName:      "Acme",
		Status:           enums.AffiliationStatusInactive,
		CurrentEmployees: 2,
	})
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if row.Status == nil || *row.Status != "inactive" {
		t.Fatalf("unexpected status %v", row.Status)
	}
	if row.Quantity == nil || *row.Quantity != 2 {
		t.Fatalf("unexpected employee count %v", row.Quantity)
	}
}

func TestRowHandlerSurfacesWriterError(t *testing.T) {
	boom := errors.New("bigquery unavailable")
	router := newSilentRouter(t, &fakeWriter{err: boom})

	env := envelopeFor(t, enums.EventRequestRejected, enums.AggregateAssetRequest, payloads.RequestDecidedEvent{
		RequestID: uuid.New(),
		Status:    enums.RequestStatusRejected,
	})
	if err := router.Handle(context.Background(), env); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func newSilentRouter(t *testing.T, writer Writer) *Router {
	t.Helper()
	router, err := NewRouter(writer, logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	return router
}

func envelopeFor(t *testing.T, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, payload any) types.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return types.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Date(2025, 3, 5, 8, 30, 0, 0, time.UTC),
		Actor:         &outbox.ActorRef{Email: "hr@acme.test", Role: "hr"},
		Payload:       data,
	}
}

type fakeWriter struct {
	inserted []types.AssetEventRow
	err      error
}

func (f *fakeWriter) InsertAssetEvent(_ context.Context, row types.AssetEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, row)
	return nil
}
