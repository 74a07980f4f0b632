package storesettings

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/money"
)

// Service resolves the pricing rules for a request. The settings row is
// read on every call so admin changes apply without a restart.
type Service struct {
	db       *gorm.DB
	defaults money.Pricing
}

func NewService(db *gorm.DB, cfg config.CheckoutConfig) (*Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db required")
	}
	return &Service{db: db, defaults: Defaults(cfg)}, nil
}

// Defaults builds the fallback pricing from configuration.
func Defaults(cfg config.CheckoutConfig) money.Pricing {
	return money.Pricing{
		Currency:              money.NormalizeCurrency(cfg.Currency),
		FreeDeliveryThreshold: cfg.Threshold(),
		DeliveryPercentage:    cfg.DeliveryPercentage(),
	}
}

// Pricing returns the stored pricing, or the configured defaults when no
// settings row exists.
func (s *Service) Pricing(ctx context.Context) (money.Pricing, error) {
	var row models.StoreSettings
	err := s.db.WithContext(ctx).Where("id = ?", models.StoreSettingsID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return money.Pricing{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store settings")
	}

	pricing := money.Pricing{
		Currency:              money.NormalizeCurrency(row.Currency),
		FreeDeliveryThreshold: row.FreeDeliveryThreshold,
		DeliveryPercentage:    row.StandardDeliveryPercentage,
	}
	if pricing.Currency == "" {
		pricing.Currency = s.defaults.Currency
	}
	return pricing, nil
}
