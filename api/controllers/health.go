package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

const envHeader = "X-AssetFlow-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. Nil pingers are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := []struct {
			name   string
			pinger db.Pinger
		}{
			{"database", database},
			{"redis", cache},
		}
		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
