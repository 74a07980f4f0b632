package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/internal/products"
	"github.com/little-explorers/storefront/pkg/db"
	"github.com/little-explorers/storefront/pkg/db/dbtest"
	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/money"
)

type fixedPricing struct {
	pricing money.Pricing
	err     error
}

func (f fixedPricing) Pricing(context.Context) (money.Pricing, error) {
	return f.pricing, f.err
}

func testPricing() money.Pricing {
	return money.Pricing{
		Currency:              "eur",
		FreeDeliveryThreshold: decimal.NewFromInt(50),
		DeliveryPercentage:    decimal.NewFromInt(5),
	}
}

type fixture struct {
	conn   *gorm.DB
	repo   Repository
	svc    *Service
	shirt  *models.Product
	hat    *models.Product
	order  *models.Order
}

// newFixture stores an order with lines [(hat, 2), (shirt size M, 1)].
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	conn := dbtest.Open(t)
	productRepo := products.NewRepository(conn)

	hat := &models.Product{Name: "Hat", Price: decimal.RequireFromString("8.00")}
	shirt := &models.Product{Name: "Shirt", Price: decimal.RequireFromString("12.50"), HasSizes: true}
	require.NoError(t, productRepo.Create(ctx, hat))
	require.NoError(t, productRepo.Create(ctx, shirt))

	repo := NewRepository(conn)
	order := &models.Order{
		FullName:         "Jo Bloggs",
		Email:            "jo@example.com",
		PhoneNumber:      "0123",
		Country:          "IE",
		TownOrCity:       "Dublin",
		StreetAddress1:   "1 Main Street",
		Currency:         "eur",
		OriginalBag:      `{"1":2}`,
		PaymentReference: "pi_123",
	}
	size := "M"
	err := db.NewFromConn(conn).WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := txRepo.CreateLineItems(ctx, []models.OrderLineItem{
			{OrderID: order.ID, ProductID: hat.ID, Quantity: 2, UnitPrice: hat.Price},
			{OrderID: order.ID, ProductID: shirt.ID, Size: &size, Quantity: 1, UnitPrice: shirt.Price},
		}); err != nil {
			return err
		}
		_, err := Recalculate(ctx, tx, order.ID, testPricing())
		return err
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       db.NewFromConn(conn),
		Products: productRepo,
		Pricing:  fixedPricing{pricing: testPricing()},
	})
	require.NoError(t, err)

	return &fixture{conn: conn, repo: repo, svc: svc, shirt: shirt, hat: hat, order: order}
}

func TestRecalculateSumsLineTotals(t *testing.T) {
	f := newFixture(t)

	stored, err := f.repo.FindByNumber(context.Background(), f.order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, stored.LineItems, 2)

	sum := decimal.Zero
	for _, item := range stored.LineItems {
		sum = sum.Add(item.LineTotal)
	}
	assert.Equal(t, "28.50", sum.StringFixed(2))
	assert.Equal(t, "28.50", stored.OrderTotal.StringFixed(2))
	assert.Equal(t, "1.43", stored.DeliveryCost.StringFixed(2))
	assert.Equal(t, "29.93", stored.GrandTotal.StringFixed(2))
}

func TestRecalculateWithNoLinesZeroesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var order *models.Order
	err := db.NewFromConn(f.conn).WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", f.order.ID).Delete(&models.OrderLineItem{}).Error; err != nil {
			return err
		}
		var err error
		order, err = Recalculate(ctx, tx, f.order.ID, testPricing())
		return err
	})
	require.NoError(t, err)
	assert.True(t, order.OrderTotal.IsZero())
	assert.True(t, order.DeliveryCost.IsZero())
	assert.True(t, order.GrandTotal.IsZero())
}

func TestRecalculateMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := Recalculate(context.Background(), f.conn, uuid.New(), testPricing())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
