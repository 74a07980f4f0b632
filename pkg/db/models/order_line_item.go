package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLineItem is one (product, size) row of an order. LineTotal is
// always UnitPrice x Quantity at the time of the write.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID int64           `gorm:"column:product_id;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Size      *string         `gorm:"column:size;size:2"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeSave recomputes LineTotal so a stored row never disagrees with its
// quantity.
func (li *OrderLineItem) BeforeSave(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	li.LineTotal = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
	return nil
}
