package models

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/enums"
)

// Order is the persisted result of a checkout submission. Totals are
// derived from the line items and are never written from request input.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber      string              `gorm:"column:order_number;size:32;not null;uniqueIndex"`
	UserProfileID    *uuid.UUID          `gorm:"column:user_profile_id;type:uuid"`
	FullName         string              `gorm:"column:full_name;not null"`
	Email            string              `gorm:"column:email;not null"`
	PhoneNumber      string              `gorm:"column:phone_number;not null"`
	Country          string              `gorm:"column:country;not null"`
	Postcode         *string             `gorm:"column:postcode"`
	TownOrCity       string              `gorm:"column:town_or_city;not null"`
	StreetAddress1   string              `gorm:"column:street_address1;not null"`
	StreetAddress2   *string             `gorm:"column:street_address2"`
	County           *string             `gorm:"column:county"`
	Currency         string              `gorm:"column:currency;not null"`
	DeliveryCost     decimal.Decimal     `gorm:"column:delivery_cost;type:numeric(10,2);not null;default:0"`
	OrderTotal       decimal.Decimal     `gorm:"column:order_total;type:numeric(10,2);not null;default:0"`
	GrandTotal       decimal.Decimal     `gorm:"column:grand_total;type:numeric(10,2);not null;default:0"`
	OriginalBag      string              `gorm:"column:original_bag;type:text;not null"`
	PaymentReference string              `gorm:"column:payment_reference;not null;index"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	LineItems        []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the row id and order number once. An order that
// already carries a number keeps it.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber()
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = enums.PaymentStatusPending
	}
	return nil
}

// NewOrderNumber returns a random 128-bit token as 32 upper-case hex chars.
func NewOrderNumber() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:]))
}
