package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
	"github.com/little-explorers/storefront/pkg/money"
	"github.com/little-explorers/storefront/pkg/pagination"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	FindPendingPaymentsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, page pagination.Params) ([]models.Order, string, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	FindLineItem(ctx context.Context, id uuid.UUID) (*models.OrderLineItem, error)
	SaveLineItem(ctx context.Context, item *models.OrderLineItem) error
	DeleteLineItem(ctx context.Context, id uuid.UUID) error
	UpdateTotals(ctx context.Context, orderID uuid.UUID, totals money.Totals) error
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error
	AttachProfile(ctx context.Context, orderID, profileID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PricingSource resolves the delivery rules in force for the current request.
type PricingSource interface {
	Pricing(ctx context.Context) (money.Pricing, error)
}
