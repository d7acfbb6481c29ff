// Package publisher drains outbox_events into Pub/Sub topics.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	maxIdleBackoff     = 10 * time.Second
	publishTimeout     = 15 * time.Second
)

type txRunner interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type Params struct {
	Outbox     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	Broker     Broker
	Events     eventStore
	DeadLetter deadLetterStore
	Registry   resolver
	Metrics    *metrics.OutboxMetrics
}

// Stats summarizes one drained batch.
type Stats struct {
	Fetched      int
	Published    int
	Retried      int
	DeadLettered int
}

// Dispatcher publishes pending outbox rows in batches. Each batch runs in a
// single transaction so row locks are held until every row is marked.
type Dispatcher struct {
	logg        *logger.Logger
	db          txRunner
	broker      Broker
	events      eventStore
	deadLetter  deadLetterStore
	registry    resolver
	metrics     *metrics.OutboxMetrics
	topics      *topicCache
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func New(params Params) (*Dispatcher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("broker is required")
	case params.Events == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetter == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	d := &Dispatcher{
		logg:        params.Logger,
		db:          params.DB,
		broker:      params.Broker,
		events:      params.Events,
		deadLetter:  params.DeadLetter,
		registry:    params.Registry,
		metrics:     params.Metrics,
		topics:      newTopicCache(params.Broker),
		batchSize:   positiveOr(params.Outbox.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(params.Outbox.MaxAttempts, defaultMaxAttempts),
		poll:        defaultPoll,
		now:         time.Now,
	}
	if params.Outbox.PollIntervalMS > 0 {
		d.poll = time.Duration(params.Outbox.PollIntervalMS) * time.Millisecond
	}
	return d, nil
}

// Run drains batches until ctx is done. Empty batches wait one poll interval,
// failed batches back off exponentially up to maxIdleBackoff.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := d.broker.Ping(ctx); err != nil {
		return fmt.Errorf("broker ping: %w", err)
	}

	wait := newPollBackoff(d.poll, maxIdleBackoff)
	for {
		if err := ctx.Err(); err != nil {
			d.logg.Info(ctx, "outbox dispatcher stopped")
			return err
		}

		stats, err := d.DrainOnce(ctx)
		var delay time.Duration
		switch {
		case err != nil:
			d.logg.Error(ctx, "outbox batch failed", err)
			delay = wait.failure()
		case stats.Fetched == 0:
			delay = wait.idle()
		default:
			wait.reset()
			if stats.Retried > 0 || stats.DeadLettered > 0 {
				d.logg.Warn(d.logg.WithFields(ctx, stats.fields()), "outbox batch drained with failures")
			}
			continue
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// DrainOnce publishes at most one batch.
func (d *Dispatcher) DrainOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = Stats{}
		rows, err := d.events.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch pending events: %w", err)
		}
		stats.Fetched = len(rows)
		for _, row := range rows {
			result, err := d.dispatch(ctx, tx, row)
			if err != nil {
				return err
			}
			stats.record(result)
		}
		return nil
	})
	return stats, err
}

func (d *Dispatcher) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	resolved, err := d.registry.Resolve(row)
	if err != nil {
		return d.bury(ctx, tx, row, "", deadLetterFor(row, err, d.maxAttempts, true))
	}

	topic := resolved.Descriptor.Topic
	pubErr := d.publish(ctx, row, resolved)
	switch result := classify(row, pubErr, d.maxAttempts); result {
	case outcomePublished:
		if err := d.events.MarkPublishedTx(tx, row.ID); err != nil {
			return result, fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		d.metrics.IncPublished(row.EventType.String())
		d.logg.Debug(d.logg.WithFields(ctx, rowFields(row, topic)), "outbox event published")
		return result, nil
	case outcomeRetry:
		fields := rowFields(row, topic)
		fields["attempt_count"] = row.AttemptCount + 1
		fields["error"] = pubErr.Error()
		d.logg.Warn(d.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
		d.metrics.IncFailed(row.EventType.String())
		if err := d.events.MarkFailedTx(tx, row.ID, pubErr); err != nil {
			return result, fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
		return result, nil
	default:
		return d.bury(ctx, tx, row, topic, deadLetterFor(row, pubErr, d.maxAttempts, false))
	}
}

// bury copies the row into outbox_dlq and stops further attempts.
func (d *Dispatcher) bury(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, topic string, dl deadLetter) (outcome, error) {
	fields := rowFields(row, topic)
	fields["error_reason"] = dl.reason
	fields["error"] = dl.err.Error()
	d.logg.Warn(d.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	msg := dl.err.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   dl.reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      d.now().UTC(),
	}
	if err := d.deadLetter.InsertTx(tx, entry); err != nil {
		return outcomeDead, fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := d.events.MarkTerminalTx(tx, row.ID, dl.err, d.maxAttempts); err != nil {
		return outcomeDead, fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	d.metrics.IncDeadLettered(string(dl.reason))
	return outcomeDead, nil
}

func (d *Dispatcher) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := d.topics.get(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return pub.Publish(publishCtx, buildMessage(row, resolved))
}

func (s *Stats) record(o outcome) {
	switch o {
	case outcomePublished:
		s.Published++
	case outcomeRetry:
		s.Retried++
	case outcomeDead:
		s.DeadLettered++
	}
}

func (s Stats) fields() map[string]any {
	return map[string]any{
		"fetched":       s.Fetched,
		"published":     s.Published,
		"retried":       s.Retried,
		"dead_lettered": s.DeadLettered,
	}
}

func rowFields(row models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType.String(),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	return fields
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
