package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/assetflow-backend/api/controllers"
	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/internal/affiliations"
	"github.com/angelmondragon/assetflow-backend/internal/assets"
	"github.com/angelmondragon/assetflow-backend/internal/assignments"
	"github.com/angelmondragon/assetflow-backend/internal/auth"
	"github.com/angelmondragon/assetflow-backend/internal/packages"
	"github.com/angelmondragon/assetflow-backend/internal/payments"
	"github.com/angelmondragon/assetflow-backend/internal/requests"
	"github.com/angelmondragon/assetflow-backend/internal/users"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/assetflow-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Nil infrastructure
// fields disable the matching middleware or readiness check.
type Dependencies struct {
	DB          db.Pinger
	Redis       db.Pinger
	RateLimiter middleware.RateLimiter
	Idempotency pkgredis.IdempotencyStore
	UserLoader  middleware.UserLoader
	Gatherer    prometheus.Gatherer

	Auth         auth.Service
	Users        users.Service
	Assets       assets.Service
	Requests     requests.Service
	Assignments  assignments.Service
	Affiliations affiliations.Service
	Packages     packages.Service
	Payments     payments.Service

	StripeWebhook       controllers.StripeEventHandler
	StripeWebhookGuard  controllers.StripeEventGuard
	StripeSigningSecret string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.With(middleware.AuthRateLimit(middleware.TokenRateLimit(cfg.AuthRateLimit), deps.RateLimiter, logg)).
		Post("/jwt", controllers.IssueToken(deps.Auth, logg))
	r.With(middleware.AuthRateLimit(middleware.SignupRateLimit(cfg.AuthRateLimit), deps.RateLimiter, logg)).
		Post("/users", controllers.Signup(deps.Users, logg))

	if deps.StripeWebhook != nil {
		r.Post("/webhooks/stripe", controllers.StripeWebhook(deps.StripeWebhook, deps.StripeWebhookGuard, deps.StripeSigningSecret, logg))
	}

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Idempotency(deps.Idempotency, logg),
		)

		r.Get("/users/me", controllers.CurrentUser(deps.Users, logg))
		r.Put("/users/{email}", controllers.UpdateProfile(deps.Users, logg))

		r.Get("/assets", controllers.ListAssets(deps.Assets, logg))
		r.Get("/assets/{id}", controllers.GetAsset(deps.Assets, logg))
		r.Get("/available-assets", controllers.ListAvailableAssets(deps.Assets, logg))

		r.Get("/assigned-assets", controllers.ListAssignedAssets(deps.Assignments, logg))
		r.Patch("/assigned-assets/{id}/return", controllers.ReturnAssignment(deps.Assignments, logg))

		r.Post("/requests", controllers.CreateRequest(deps.Requests, logg))
		r.Get("/requests", controllers.ListRequests(deps.Requests, logg))

		r.Get("/affiliations", controllers.ListAffiliations(deps.Affiliations, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireHR(deps.UserLoader, logg))

			r.Post("/assets", controllers.CreateAsset(deps.Assets, logg))
			r.Put("/assets/{id}", controllers.UpdateAsset(deps.Assets, logg))
			r.Delete("/assets/{id}", controllers.DeleteAsset(deps.Assets, logg))

			r.Patch("/requests", controllers.DecideRequest(deps.Requests, logg))
			r.Patch("/affiliations", controllers.RemoveAffiliation(deps.Affiliations, logg))

			r.Post("/assign-asset", controllers.DirectAssign(deps.Assignments, logg))
			r.Get("/company-assignments", controllers.ListCompanyAssignments(deps.Assignments, logg))

			r.Get("/packages", controllers.ListPackages(deps.Packages, logg))
			r.Post("/create-checkout-session", controllers.CreateCheckoutSession(deps.Payments, logg))
			r.Post("/confirm-payment", controllers.ConfirmPayment(deps.Payments, logg))
			r.Get("/payments", controllers.ListPayments(deps.Payments, logg))
		})
	})

	return r
}
