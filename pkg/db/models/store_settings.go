package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreSettingsID is the primary key of the singleton settings row.
const StoreSettingsID = 1

// StoreSettings holds the pricing rules administrators may change at runtime.
type StoreSettings struct {
	ID                         int             `gorm:"column:id;primaryKey"`
	Currency                   string          `gorm:"column:currency;size:3;not null;default:'EUR'"`
	FreeDeliveryThreshold      decimal.Decimal `gorm:"column:free_delivery_threshold;type:numeric(10,2);not null"`
	StandardDeliveryPercentage decimal.Decimal `gorm:"column:standard_delivery_percentage;type:numeric(5,2);not null"`
	UpdatedAt                  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreSettings) TableName() string {
	return "store_settings"
}
