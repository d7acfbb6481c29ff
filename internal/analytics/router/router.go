package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer accepts finished asset_events rows.
type Writer interface {
	InsertAssetEvent(ctx context.Context, row types.AssetEventRow) error
}

type rowBuilder func(env types.Envelope) (types.AssetEventRow, error)

// Router turns each supported event type into one asset_events row.
type Router struct {
	writer   Writer
	logg     *logger.Logger
	builders map[enums.OutboxEventType]rowBuilder
}

func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{writer: writer, logg: logg, builders: assetEventBuilders()}, nil
}

// Handle builds and writes the row for env.
func (r *Router) Handle(ctx context.Context, env types.Envelope) error {
	build, ok := r.builders[env.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, env.EventType)
	}
	row, err := build(env)
	if err != nil {
		return err
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_type":   string(env.EventType),
		"aggregate_id": env.AggregateID,
	})
	if err := r.writer.InsertAssetEvent(ctx, row); err != nil {
		r.logg.Error(ctx, "insert asset event row", err)
		return err
	}
	r.logg.Debug(ctx, "asset event row written")
	return nil
}

// rowFor decodes the payload into T and lets fill copy its columns. fill
// returns the domain timestamp; a zero value falls back to the envelope time.
func rowFor[T any](fill func(row *types.AssetEventRow, event *T) time.Time) rowBuilder {
	return func(env types.Envelope) (types.AssetEventRow, error) {
		var event T
		if err := env.Decode(&event); err != nil {
			return types.AssetEventRow{}, err
		}
		row := types.AssetEventRow{
			EventID:       env.EventID,
			EventType:     string(env.EventType),
			AggregateType: string(env.AggregateType),
			AggregateID:   env.AggregateID,
			ActorEmail:    optional(env.ActorEmail()),
			Payload:       types.JSONColumn(env.Payload),
		}
		row.OccurredAt = eventTime(fill(&row, &event), env.OccurredAt)
		return row, nil
	}
}

func eventTime(domain, fallback time.Time) time.Time {
	if domain.IsZero() {
		return fallback.UTC()
	}
	return domain.UTC()
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func count[N ~int | ~int64](n N) *int64 {
	v := int64(n)
	return &v
}
