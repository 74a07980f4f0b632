package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/money"
	"github.com/little-explorers/storefront/pkg/pagination"
)

func TestDeleteLineItemRecalculatesWithoutExplicitCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.svc.GetByNumber(ctx, f.order.OrderNumber)
	require.NoError(t, err)
	var shirtLine models.OrderLineItem
	for _, item := range before.LineItems {
		if item.ProductID == f.shirt.ID {
			shirtLine = item
		}
	}
	require.NotEqual(t, uuid.Nil, shirtLine.ID)

	_, err = f.svc.DeleteLineItem(ctx, f.order.OrderNumber, shirtLine.ID)
	require.NoError(t, err)

	after, err := f.svc.GetByNumber(ctx, f.order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, after.LineItems, 1)
	assert.Equal(t, "16.00", after.OrderTotal.StringFixed(2))
	assert.Equal(t, "0.80", after.DeliveryCost.StringFixed(2))
	assert.Equal(t, "16.80", after.GrandTotal.StringFixed(2))
}

func TestUpdateLineItemQuantityRepricesAtCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.GetByNumber(ctx, f.order.OrderNumber)
	require.NoError(t, err)
	var hatLine models.OrderLineItem
	for _, item := range order.LineItems {
		if item.ProductID == f.hat.ID {
			hatLine = item
		}
	}

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", f.hat.ID).Update("price", "9.00").Error)

	updated, err := f.svc.UpdateLineItemQuantity(ctx, f.order.OrderNumber, hatLine.ID, 5)
	require.NoError(t, err)

	for _, item := range updated.LineItems {
		if item.ID == hatLine.ID {
			assert.Equal(t, 5, item.Quantity)
			assert.Equal(t, "45.00", item.LineTotal.StringFixed(2))
		}
	}
	assert.Equal(t, "57.50", updated.OrderTotal.StringFixed(2))
	assert.True(t, updated.DeliveryCost.IsZero())
	assert.Equal(t, "57.50", updated.GrandTotal.StringFixed(2))
}

func TestAddLineItemRecalculates(t *testing.T) {
	f := newFixture(t)
	updated, err := f.svc.AddLineItem(context.Background(), f.order.OrderNumber, LineItemInput{ProductID: f.hat.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, updated.LineItems, 3)
	assert.Equal(t, "36.50", updated.OrderTotal.StringFixed(2))
	assert.Equal(t, "1.83", updated.DeliveryCost.StringFixed(2))
}

func TestLineItemWritesValidateInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateLineItemQuantity(ctx, f.order.OrderNumber, uuid.New(), 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.DeleteLineItem(ctx, f.order.OrderNumber, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.DeleteLineItem(ctx, "NOPE", uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddLineItem(ctx, f.order.OrderNumber, LineItemInput{ProductID: 9999, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddLineItem(ctx, f.order.OrderNumber, LineItemInput{ProductID: f.hat.ID, Quantity: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLineItemFromAnotherOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	other := newFixture(t)
	ctx := context.Background()

	otherOrder, err := other.svc.GetByNumber(ctx, other.order.OrderNumber)
	require.NoError(t, err)
	_, err = f.svc.DeleteLineItem(ctx, f.order.OrderNumber, otherOrder.LineItems[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResaveKeepsOrderNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	number := f.order.OrderNumber
	require.Len(t, number, 32)

	order, err := f.repo.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	order.FullName = "Jo B"
	require.NoError(t, f.conn.Omit("LineItems").Save(order).Error)

	_, err = f.svc.AddLineItem(ctx, number, LineItemInput{ProductID: f.hat.ID, Quantity: 1})
	require.NoError(t, err)

	reloaded, err := f.repo.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, number, reloaded.OrderNumber)
	assert.Equal(t, "Jo B", reloaded.FullName)
}

func TestPricingFailureAbortsWrite(t *testing.T) {
	f := newFixture(t)
	f.svc.pricing = fixedPricing{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load store settings")}

	_, err := f.svc.AddLineItem(context.Background(), f.order.OrderNumber, LineItemInput{ProductID: f.hat.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	order, err := f.repo.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Len(t, order.LineItems, 2)
}

func TestListForProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profileID := uuid.New()

	_, err := f.svc.ListForProfile(ctx, uuid.Nil, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	attached, err := f.repo.AttachProfile(ctx, f.order.ID, profileID)
	require.NoError(t, err)
	require.True(t, attached)
	page, err := f.svc.ListForProfile(ctx, profileID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, f.order.OrderNumber, page.Orders[0].OrderNumber)
	assert.Empty(t, page.NextCursor)

	_, err = f.svc.ListForProfile(ctx, profileID, pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListForProfilePagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profileID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var numbers []string
	for i, ref := range []string{"pi_old", "pi_mid", "pi_new"} {
		order := &models.Order{
			UserProfileID:    &profileID,
			FullName:         "Jo Bloggs",
			Email:            "jo@example.com",
			PhoneNumber:      "0123",
			Country:          "IE",
			TownOrCity:       "Dublin",
			StreetAddress1:   "1 Main Street",
			Currency:         "eur",
			OriginalBag:      "{}",
			PaymentReference: ref,
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, f.repo.CreateOrder(ctx, order))
		numbers = append(numbers, order.OrderNumber)
	}

	first, err := f.svc.ListForProfile(ctx, profileID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, numbers[2], first.Orders[0].OrderNumber)
	assert.Equal(t, numbers[1], first.Orders[1].OrderNumber)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListForProfile(ctx, profileID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, numbers[0], second.Orders[0].OrderNumber)
	assert.Empty(t, second.NextCursor)
}

func TestFindPendingPaymentsBefore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var stale, settled *models.Order
	for _, ref := range []string{"pi_stale", "pi_settled"} {
		order := &models.Order{
			FullName:         "Jo Bloggs",
			Email:            "jo@example.com",
			PhoneNumber:      "0123",
			Country:          "IE",
			TownOrCity:       "Dublin",
			StreetAddress1:   "1 Main Street",
			Currency:         "eur",
			OriginalBag:      "{}",
			PaymentReference: ref,
			CreatedAt:        base,
		}
		require.NoError(t, f.repo.CreateOrder(ctx, order))
		if stale == nil {
			stale = order
		} else {
			settled = order
		}
	}
	require.NoError(t, f.repo.SetPaymentStatus(ctx, settled.ID, enums.PaymentStatusPaid))

	rows, err := f.repo.FindPendingPaymentsBefore(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.OrderNumber, rows[0].OrderNumber)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(nil), Pricing: fixedPricing{pricing: money.Pricing{}}})
	assert.Error(t, err)
}
