package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Only the fields the bag and checkout read
// are modelled here.
type Product struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SKU       *string         `gorm:"column:sku" json:"sku,omitempty"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	HasSizes  bool            `gorm:"column:has_sizes;not null;default:false" json:"has_sizes"`
	ImageURL  *string         `gorm:"column:image_url" json:"image_url,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}
