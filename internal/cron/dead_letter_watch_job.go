package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
)

type deadLetterCounter interface {
	CountSince(ctx context.Context, since time.Time) (map[enums.OutboxDLQErrorReason]int64, error)
}

type DeadLetterWatchJobParams struct {
	Logger  *logger.Logger
	DLQ     deadLetterCounter
	Metrics *metrics.OutboxMetrics
	Window  time.Duration
	Now     func() time.Time
}

// NewDeadLetterWatchJob reports how many outbox events were dead lettered
// inside the trailing window.
func NewDeadLetterWatchJob(params DeadLetterWatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	if params.Window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &deadLetterWatchJob{
		logg:    params.Logger,
		dlq:     params.DLQ,
		metrics: params.Metrics,
		window:  params.Window,
		now:     now,
	}, nil
}

type deadLetterWatchJob struct {
	logg    *logger.Logger
	dlq     deadLetterCounter
	metrics *metrics.OutboxMetrics
	window  time.Duration
	now     func() time.Time
}

func (j *deadLetterWatchJob) Name() string { return "dead-letter-watch" }

func (j *deadLetterWatchJob) Run(ctx context.Context) error {
	counts, err := j.dlq.CountSince(ctx, j.now().UTC().Add(-j.window))
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}

	var total int64
	fields := map[string]any{"window": j.window.String()}
	for _, reason := range enums.OutboxDLQErrorReasons() {
		j.metrics.SetRecentDeadLetters(reason.String(), counts[reason])
		fields[reason.String()] = counts[reason]
		total += counts[reason]
	}

	logCtx := j.logg.WithFields(ctx, fields)
	if total > 0 {
		j.logg.Warn(logCtx, "outbox events dead lettered")
		return nil
	}
	j.logg.Info(logCtx, "no dead letters in window")
	return nil
}
