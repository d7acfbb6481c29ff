package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/assetflow-backend/internal/cron"
	"github.com/angelmondragon/assetflow-backend/internal/users"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/instance"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/migrate"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(ctx, "error closing cron worker resources", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		RetentionDays: cfg.Cron.OutboxRetentionDays,
		MinAttempts:   cfg.Outbox.MaxAttempts,
		BatchSize:     cfg.Cron.OutboxPurgeBatch,
	})
	requireResource(ctx, logg, "outbox retention job", err)

	seatJob, err := cron.NewSeatReconcileJob(cron.SeatReconcileJobParams{
		Logger: logg,
		Users:  users.NewRepository(dbClient.DB()),
	})
	requireResource(ctx, logg, "seat reconcile job", err)

	watchJob, err := cron.NewDeadLetterWatchJob(cron.DeadLetterWatchJobParams{
		Logger:  logg,
		DLQ:     outbox.NewDLQRepository(dbClient.DB()),
		Metrics: metrics.NewOutboxMetrics(promRegistry),
		Window:  cfg.Cron.DeadLetterWindow,
	})
	requireResource(ctx, logg, "dead letter watch job", err)

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", env), 0)
	requireResource(ctx, logg, "cron lock", err)

	registry := cron.NewRegistry(retentionJob, seatJob, watchJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(promRegistry),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(cfg.Service.Kind),
		"jobs":        registry.Names(),
	})
	logg.Info(runCtx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
