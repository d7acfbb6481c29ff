// Package writer streams asset_events rows into BigQuery.
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
)

// RetryPolicy bounds insert retries for transient BigQuery failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

var defaultRetry = RetryPolicy{MaxAttempts: 3, InitialBackoff: 250 * time.Millisecond, MaximumBackoff: 2 * time.Second}

type Config struct {
	Table     string
	BatchSize int
	Retry     RetryPolicy
}

type inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer buffers rows until BatchSize is reached. With the default batch of
// one, every row is written before its message is acked.
type Writer struct {
	client    inserter
	table     string
	batchSize int
	retry     RetryPolicy
	sleep     func(context.Context, time.Duration) error

	mu      sync.Mutex
	pending []types.AssetEventRow
}

func New(client inserter, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		return nil, errors.New("asset events table is required")
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 1
	}
	return &Writer{
		client:    client,
		table:     table,
		batchSize: batch,
		retry:     cfg.Retry.withDefaults(),
		sleep:     sleepCtx,
	}, nil
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultRetry.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultRetry.InitialBackoff
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(defaultRetry.MaximumBackoff, p.InitialBackoff)
	}
	return p
}

func (w *Writer) InsertAssetEvent(ctx context.Context, row types.AssetEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

// Flush writes whatever is buffered. Called on shutdown.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

// flushLocked empties the buffer before inserting. Rows of a failed batch are
// not kept: their messages are nacked and come back through redelivery.
func (w *Writer) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.pending))
	for i := range w.pending {
		row := w.pending[i]
		rows = append(rows, &row)
	}
	w.pending = w.pending[:0]
	return w.insert(ctx, rows)
}

func (w *Writer) insert(ctx context.Context, rows []any) error {
	wait := w.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := w.client.InsertRows(ctx, w.table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.MaxAttempts || !retryable(err) {
			return fmt.Errorf("insert %d rows into %s after %d attempt(s): %w", len(rows), w.table, attempt, err)
		}
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
		wait = min(wait*2, w.retry.MaximumBackoff)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
