package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// MaybeRunDev applies the embedded migrations when running in dev with
// STOREFRONT_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	// the SQL files are Postgres-only
	if strings.EqualFold(cfg.DB.Driver, "sqlite") {
		logg.Info(ctx, "migration.sqlite_automigrate")
		return AutoMigrateModels(client.DB())
	}

	sqlDB, err := client.SQLDB()
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	if err := Apply(ctx, sqlDB, EmbeddedSource(), "up", logg); err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}
	logg.Info(ctx, "migration.dev_autorun_complete")
	return nil
}

// AutoMigrateModels creates the storefront tables from the GORM models.
func AutoMigrateModels(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.SKU{},
		&models.User{},
		&models.Address{},
		&models.Order{},
		&models.OrderLine{},
	)
}
