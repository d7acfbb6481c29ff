package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev
// with ASSETFLOW_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := Validate(Embedded()); err != nil {
		return fmt.Errorf("embedded migrations invalid: %w", err)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying embedded migrations")
	if err := Apply(ctx, sqlDB, Embedded(), Up); err != nil {
		return err
	}
	logg.Info(ctx, "schema up to date")
	return nil
}
