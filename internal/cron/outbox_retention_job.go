package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const (
	defaultOutboxRetention  = 30 * 24 * time.Hour
	defaultOutboxAttempts   = 10
	defaultOutboxPurgeBatch = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

// OutboxRetentionJobParams configure outbox cleanup. MinAttempts should match
// the publisher's attempt ceiling so only dead-lettered rows are purged.
type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxPurger
	RetentionDays int
	MinAttempts   int
	BatchSize     int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		retention:   defaultOutboxRetention,
		minAttempts: defaultOutboxAttempts,
		batch:       defaultOutboxPurgeBatch,
		now:         time.Now,
	}
	if params.RetentionDays > 0 {
		job.retention = time.Duration(params.RetentionDays) * 24 * time.Hour
	}
	if params.MinAttempts > 0 {
		job.minAttempts = params.MinAttempts
	}
	if params.BatchSize > 0 {
		job.batch = params.BatchSize
	}
	return job, nil
}

// outboxRetentionJob deletes expired outbox rows in short batches, one
// transaction each, until a batch comes back partially filled.
type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPurger
	retention   time.Duration
	minAttempts int
	batch       int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention batch %d: %w", batches+1, err)
		}
		total += n
		batches++
		if n < int64(j.batch) {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"min_attempts": j.minAttempts,
		"batches":      batches,
		"rows_deleted": total,
	}), "outbox retention cleanup complete")
	return nil
}
