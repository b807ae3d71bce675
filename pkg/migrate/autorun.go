package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fitconnect-client/pkg/config"
	"github.com/angelmondragon/fitconnect-client/pkg/db"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
)

// MaybeRun applies pending migrations when auto-migrate is enabled. The
// client owns its local database, so this runs in every environment.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	logg.Debug(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, client.Dialect(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Debug(ctx, "goose migrations completed")
	return nil
}
