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

	"github.com/angelmondragon/assetflow-backend/internal/eventing/publisher"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/instance"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/migrate"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/registry"
	"github.com/angelmondragon/assetflow-backend/pkg/pubsub"
)

const metricsShutdownTimeout = 5 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Needs{Topics: eventRegistry.Topics()}, logg)
	requireResource(ctx, logg, "pubsub", err)

	defer func() {
		if err := multierr.Combine(pubsubClient.Close(), dbClient.Close()); err != nil {
			logg.Error(ctx, "error closing outbox publisher resources", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	dispatcher, err := publisher.New(publisher.Params{
		Outbox:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Broker:     pubsubClient,
		Events:     outbox.NewRepository(dbClient.DB()),
		DeadLetter: outbox.NewDLQRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Metrics:    metrics.NewOutboxMetrics(promRegistry),
	})
	requireResource(ctx, logg, "outbox dispatcher", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(cfg.Service.Kind),
		"topics":      eventRegistry.Topics(),
	})

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		logg.Info(groupCtx, "starting outbox publisher")
		return dispatcher.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "outbox publisher shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
