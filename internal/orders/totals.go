package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/money"
)

// Recalculate rewrites the cached totals of an order from its current line
// items. It must run inside the transaction that changed the line items.
func Recalculate(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, pricing money.Pricing) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for order recalculation")
	}
	repo := NewRepository(tx)

	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}

	items, err := repo.ListLineItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line items")
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal)
	}
	totals := pricing.Compute(sum)

	if err := repo.UpdateTotals(ctx, orderID, totals); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
	}

	order.OrderTotal = totals.Subtotal
	order.DeliveryCost = totals.DeliveryFee
	order.GrandTotal = totals.GrandTotal
	order.LineItems = items
	return order, nil
}
