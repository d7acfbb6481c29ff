package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/registry"
)

type stubTx struct{}

func (stubTx) Ping(context.Context) error { return nil }

func (stubTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type stubBroker struct{}

func (stubBroker) Ping(context.Context) error { return nil }
func (stubBroker) Publisher(string) *gcppubsub.Publisher { return nil }

type memEvents struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (m *memEvents) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(m.rows) > limit {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func (m *memEvents) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memEvents) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memEvents) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type memDLQ struct {
	entries []models.OutboxDLQ
}

func (m *memDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}

type topicResolver struct {
	topic string
	err   error
}

func (r topicResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	var env outbox.PayloadEnvelope
	_ = json.Unmarshal(row.Payload, &env)
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: row.EventType, AggregateType: row.AggregateType, Topic: r.topic},
		Envelope:   env,
	}, nil
}

// scriptedTopic returns errs in order, then succeeds.
type scriptedTopic struct {
	errs []error
	sent []*gcppubsub.Message
}

func (s *scriptedTopic) Publish(_ context.Context, msg *gcppubsub.Message) error {
	s.sent = append(s.sent, msg)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func returnedRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Actor:      &outbox.ActorRef{Email: "hr@acme.io", Role: "hr", Company: "Acme"},
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventAssetReturned,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

func newDispatcher(t *testing.T, events *memEvents, dlq *memDLQ, res resolver, topic *scriptedTopic, maxAttempts int) *Dispatcher {
	t.Helper()
	d, err := New(Params{
		Outbox:     config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: maxAttempts},
		Logger:     logger.New(logger.Options{ServiceName: "publisher-test", Output: io.Discard}),
		DB:         stubTx{},
		Broker:     stubBroker{},
		Events:     events,
		DeadLetter: dlq,
		Registry:   res,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	opened := 0
	d.topics = &topicCache{
		open: func(string) topicPublisher {
			opened++
			if opened > 1 {
				t.Fatalf("topic publisher opened more than once")
			}
			return topic
		},
		byKey: map[string]topicPublisher{},
	}
	return d
}

func TestDrainOnceSplitsOutcomes(t *testing.T) {
	ok, retry, last := returnedRow(t, 0), returnedRow(t, 0), returnedRow(t, 2)
	events := &memEvents{rows: []models.OutboxEvent{ok, retry, last}}
	dlq := &memDLQ{}
	topic := &scriptedTopic{errs: []error{nil, errors.New("unavailable"), errors.New("unavailable")}}
	d := newDispatcher(t, events, dlq, topicResolver{topic: "asset-events"}, topic, 3)
	reg := prometheus.NewRegistry()
	d.metrics = metrics.NewOutboxMetrics(reg)

	stats, err := d.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if stats != (Stats{Fetched: 3, Published: 1, Retried: 1, DeadLettered: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(events.published) != 1 || events.published[0] != ok.ID {
		t.Fatalf("expected %s published, got %v", ok.ID, events.published)
	}
	if len(events.failed) != 1 || events.failed[0] != retry.ID {
		t.Fatalf("expected %s retried, got %v", retry.ID, events.failed)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].EventID != last.ID || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected dlq entries %+v", dlq.entries)
	}
	if len(events.terminal) != 1 || events.terminal[0] != last.ID {
		t.Fatalf("expected terminal mark for %s", last.ID)
	}
	if got := testutil.ToFloat64(d.metrics.Published(enums.EventAssetReturned.String())); got != 1 {
		t.Fatalf("expected published counter 1, got %v", got)
	}
}

func TestDrainOnceDeadLettersUnresolvableRows(t *testing.T) {
	row := returnedRow(t, 0)
	events := &memEvents{rows: []models.OutboxEvent{row}}
	dlq := &memDLQ{}
	res := topicResolver{err: registry.NewNonRetryableError(errors.New("unknown event type"))}
	d := newDispatcher(t, events, dlq, res, &scriptedTopic{}, 5)

	stats, err := d.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if stats.DeadLettered != 1 || len(dlq.entries) != 1 {
		t.Fatalf("expected one dead letter, got %+v", stats)
	}
	entry := dlq.entries[0]
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable || string(entry.Payload) != string(row.Payload) {
		t.Fatalf("unexpected dlq entry %+v", entry)
	}
}

func TestDrainOnceNonRetryablePublishSkipsRetries(t *testing.T) {
	row := returnedRow(t, 0)
	events := &memEvents{rows: []models.OutboxEvent{row}}
	dlq := &memDLQ{}
	topic := &scriptedTopic{errs: []error{registry.NewNonRetryableError(errors.New("message too large"))}}
	d := newDispatcher(t, events, dlq, topicResolver{topic: "asset-events"}, topic, 10)

	if _, err := d.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(events.failed) != 0 || len(dlq.entries) != 1 {
		t.Fatalf("expected immediate dead letter, failed=%v dlq=%d", events.failed, len(dlq.entries))
	}
}

func TestBuildMessageCarriesActorAttributes(t *testing.T) {
	row := returnedRow(t, 0)
	resolved, err := topicResolver{topic: "asset-events"}.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	msg := buildMessage(row, resolved)
	if string(msg.Data) != string(row.Payload) {
		t.Fatalf("payload must pass through unchanged")
	}
	if msg.Attributes["company"] != "Acme" || msg.Attributes["actor_role"] != "hr" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
	if msg.Attributes["event_type"] != "asset_returned" || msg.Attributes["event_id"] != resolved.Envelope.EventID {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}

	resolved.Envelope.EventID = ""
	if got := buildMessage(row, resolved).Attributes["event_id"]; got != row.ID.String() {
		t.Fatalf("expected row id fallback, got %q", got)
	}
}

func TestPollBackoffCapsAndResets(t *testing.T) {
	b := newPollBackoff(100*time.Millisecond, 350*time.Millisecond)
	b.jitter = func() time.Duration { return 0 }

	got := []time.Duration{b.failure(), b.failure(), b.failure()}
	want := []time.Duration{200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: expected %s got %s", i, want[i], got[i])
		}
	}
	b.reset()
	if d := b.failure(); d != 200*time.Millisecond {
		t.Fatalf("expected reset to base, got %s", d)
	}
	if d := b.idle(); d != 100*time.Millisecond {
		t.Fatalf("idle wait must stay at base, got %s", d)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Params{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
