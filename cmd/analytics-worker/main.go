package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/router"
	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
	"github.com/angelmondragon/assetflow-backend/internal/analytics/worker"
	"github.com/angelmondragon/assetflow-backend/internal/analytics/writer"
	"github.com/angelmondragon/assetflow-backend/pkg/bigquery"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/instance"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/assetflow-backend/pkg/pubsub"
	"github.com/angelmondragon/assetflow-backend/pkg/redis"
)

const flushTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Needs{
		Subscriptions: []string{cfg.PubSub.AnalyticsSubscription},
	}, logg)
	requireResource(ctx, logg, "pubsub", err)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg, bigquery.TableSpec{
		Name:           cfg.BigQuery.AssetEventsTable,
		Schema:         types.AssetEventsSchema(),
		PartitionField: "occurred_at",
	})
	requireResource(ctx, logg, "bigquery client", err)

	subscription := pubsubClient.Subscriber(cfg.PubSub.AnalyticsSubscription)
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	tracker, err := idempotency.NewTracker(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	requireResource(ctx, logg, "consumer idempotency tracker", err)

	analyticsWriter, err := writer.New(bqClient, writer.Config{
		Table:     cfg.BigQuery.AssetEventsTable,
		BatchSize: cfg.BigQuery.InsertBatchSize,
	})
	requireResource(ctx, logg, "analytics bigquery writer", err)

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		closeErr := multierr.Combine(
			analyticsWriter.Flush(flushCtx),
			bqClient.Close(),
			pubsubClient.Close(),
			redisClient.Close(),
		)
		if closeErr != nil {
			logg.Error(ctx, "error closing analytics worker resources", closeErr)
		}
	}()

	routingHandler, err := router.NewRouter(analyticsWriter, logg)
	requireResource(ctx, logg, "analytics router", err)

	service, err := worker.NewService(subscription, routingHandler, tracker, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(cfg.Service.Kind),
	})
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		stop()
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
