package migrate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/db"
	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/logger"
)

// MaybeRunDev prepares the schema on boot. sqlite mode always auto-migrates
// from the models; Postgres runs goose only in dev with the feature flag on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := AutoMigrateModels(client.DB()); err != nil {
			return err
		}
		return seedStoreSettings(ctx, client, cfg.Checkout)
	}

	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, "")
	if err != nil {
		return err
	}
	logg.Info(ctx, "applying bundled migrations")
	return runner.Exec(ctx, "up")
}

func seedStoreSettings(ctx context.Context, client *db.Client, checkout config.CheckoutConfig) error {
	row := models.StoreSettings{
		ID:                         models.StoreSettingsID,
		Currency:                   "EUR",
		FreeDeliveryThreshold:      checkout.Threshold(),
		StandardDeliveryPercentage: checkout.DeliveryPercentage(),
	}
	if row.FreeDeliveryThreshold.IsZero() && row.StandardDeliveryPercentage.IsZero() {
		row.FreeDeliveryThreshold = decimal.NewFromInt(50)
		row.StandardDeliveryPercentage = decimal.NewFromInt(5)
	}
	return client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}
