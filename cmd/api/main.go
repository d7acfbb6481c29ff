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
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/assetflow-backend/api/routes"
	"github.com/angelmondragon/assetflow-backend/internal/affiliations"
	"github.com/angelmondragon/assetflow-backend/internal/assets"
	"github.com/angelmondragon/assetflow-backend/internal/assignments"
	"github.com/angelmondragon/assetflow-backend/internal/auth"
	"github.com/angelmondragon/assetflow-backend/internal/packages"
	"github.com/angelmondragon/assetflow-backend/internal/payments"
	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/internal/requests"
	"github.com/angelmondragon/assetflow-backend/internal/users"
	stripewebhook "github.com/angelmondragon/assetflow-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/migrate"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/assetflow-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
			logg.Error(ctx, "error closing api resources", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe", err)

	deps := buildDependencies(ctx, cfg, logg, dbClient, redisClient, stripeClient)

	addr := ":" + cfg.App.Port
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"addr":        addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		logg.Info(groupCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "api server shutting down gracefully")
}

func buildDependencies(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, stripeClient *pkgstripe.Client) routes.Dependencies {
	conn := dbClient.DB()
	gate := policy.NewGatekeeper()
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	workflow := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(conn)
	assetRepo := assets.NewRepository(conn)
	affiliationRepo := affiliations.NewRepository(conn)
	packageRepo := packages.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	requireResource(ctx, logg, "auth service", err)

	usersService, err := users.NewService(users.ServiceParams{
		Repo:    userRepo,
		Policy:  gate,
		Billing: cfg.Billing,
		Logger:  logg,
	})
	requireResource(ctx, logg, "users service", err)

	assetsService, err := assets.NewService(assets.ServiceParams{
		Repo:         assetRepo,
		Tx:           dbClient,
		Outbox:       events,
		Policy:       gate,
		Affiliations: affiliationRepo,
		Metrics:      workflow,
		Logger:       logg,
	})
	requireResource(ctx, logg, "assets service", err)

	assignmentsService, err := assignments.NewService(assignments.ServiceParams{
		Repo:         assignments.NewRepository(conn),
		Assets:       assetRepo,
		Inventory:    assets.NewInventory(),
		Affiliations: affiliationRepo,
		Tx:           dbClient,
		Outbox:       events,
		Policy:       gate,
		Locker:       redisClient,
		LockTTL:      cfg.Workflow.AssignLockTTL,
		Metrics:      workflow,
		Logger:       logg,
	})
	requireResource(ctx, logg, "assignments service", err)

	affiliationsService, err := affiliations.NewService(affiliations.ServiceParams{
		Repo:        affiliationRepo,
		Users:       userRepo,
		Tx:          dbClient,
		Outbox:      events,
		Policy:      gate,
		Assignments: assignmentsService,
		Metrics:     workflow,
		Logger:      logg,
	})
	requireResource(ctx, logg, "affiliations service", err)

	requestsService, err := requests.NewService(requests.ServiceParams{
		Repo:         requests.NewRepository(conn),
		Assets:       assetRepo,
		Users:        userRepo,
		Affiliations: affiliationsService,
		Assignments:  assignmentsService,
		Tx:           dbClient,
		Outbox:       events,
		Policy:       gate,
		Metrics:      workflow,
		Logger:       logg,
	})
	requireResource(ctx, logg, "requests service", err)

	packagesService, err := packages.NewService(packageRepo)
	requireResource(ctx, logg, "packages service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(conn),
		Users:    userRepo,
		Packages: packagesService,
		Stripe:   stripeClient,
		Locker:   redisClient,
		Tx:       dbClient,
		Outbox:   events,
		Policy:   gate,
		Billing:  cfg.Billing,
		Metrics:  workflow,
		Logger:   logg,
	})
	requireResource(ctx, logg, "payments service", err)

	deps := routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		RateLimiter: redisClient,
		Idempotency: redisClient,
		UserLoader:  userRepo,
		Gatherer:    prometheus.DefaultGatherer,

		Auth:         authService,
		Users:        usersService,
		Assets:       assetsService,
		Requests:     requestsService,
		Assignments:  assignmentsService,
		Affiliations: affiliationsService,
		Packages:     packagesService,
		Payments:     paymentsService,
	}

	if secret := stripeClient.SigningSecret(); secret != "" {
		webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Payments: paymentsService, Logger: logg})
		requireResource(ctx, logg, "stripe webhook service", err)
		guard, err := stripewebhook.NewEventDeduper(redisClient, cfg.Stripe.WebhookDedupe)
		requireResource(ctx, logg, "stripe event deduper", err)

		deps.StripeWebhook = webhookService
		deps.StripeWebhookGuard = guard
		deps.StripeSigningSecret = secret
	} else {
		logg.Warn(ctx, "stripe signing secret not set; /webhooks/stripe disabled")
	}
	return deps
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
