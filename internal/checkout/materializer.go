package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/internal/bag"
	"github.com/little-explorers/storefront/internal/orders"
	"github.com/little-explorers/storefront/internal/products"
	pkgcheckout "github.com/little-explorers/storefront/pkg/checkout"
	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/metrics"
	"github.com/little-explorers/storefront/pkg/money"
	"github.com/little-explorers/storefront/pkg/outbox"
	"github.com/little-explorers/storefront/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type MaterializerParams struct {
	Tx       txRunner
	Orders   orders.Repository
	Products *products.Repository
	Outbox   outboxPublisher
	Metrics  *metrics.Storefront
	Logger   *logger.Logger
}

// Materializer turns a bag snapshot into a stored order. Either the order
// and every line item are written, or nothing is.
type Materializer struct {
	tx       txRunner
	orders   orders.Repository
	products *products.Repository
	outbox   outboxPublisher
	metrics  *metrics.Storefront
	logg     *logger.Logger
}

func NewMaterializer(params MaterializerParams) (*Materializer, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	return &Materializer{
		tx:       params.Tx,
		orders:   params.Orders,
		products: params.Products,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// MaterializeInput is everything an order is built from.
type MaterializeInput struct {
	Customer         pkgcheckout.CustomerDetails
	Bag              *bag.Bag
	PaymentReference string
	Pricing          money.Pricing
	ProfileID        *uuid.UUID
	Actor            *outbox.ActorRef
	Source           string
}

// Materialize validates the customer, writes the order header with the bag
// snapshot, then one line item per (product, size). A product missing from
// the catalog rolls the whole order back and is reported as NOT_FOUND. When
// an order already carries the payment reference, that order is returned
// and nothing new is written.
func (m *Materializer) Materialize(ctx context.Context, input MaterializeInput) (*models.Order, error) {
	customer := input.Customer
	if err := pkgcheckout.ValidateCustomer(&customer); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(input.PaymentReference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if input.Bag == nil || input.Bag.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag is empty")
	}
	snapshot, err := input.Bag.Snapshot()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize bag")
	}

	order := &models.Order{
		UserProfileID:    input.ProfileID,
		FullName:         customer.FullName,
		Email:            customer.Email,
		PhoneNumber:      customer.PhoneNumber,
		Country:          customer.Country,
		Postcode:         optional(customer.Postcode),
		TownOrCity:       customer.TownOrCity,
		StreetAddress1:   customer.StreetAddress1,
		StreetAddress2:   optional(customer.StreetAddress2),
		County:           optional(customer.County),
		Currency:         input.Pricing.Currency,
		OriginalBag:      snapshot,
		PaymentReference: reference,
		PaymentStatus:    enums.PaymentStatusPending,
	}

	var (
		stored  *models.Order
		reissue bool
	)
	err = m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := m.orders.WithTx(tx)

		existing, err := repo.FindByPaymentReference(ctx, reference)
		switch {
		case err == nil:
			reissue = true
			stored, err = repo.FindByID(ctx, existing.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing order")
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up payment reference")
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items, err := m.lineItems(ctx, tx, order.ID, input.Bag)
		if err != nil {
			return err
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}

		recalculated, err := orders.Recalculate(ctx, tx, order.ID, input.Pricing)
		if err != nil {
			return err
		}

		if err := m.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Data: payloads.OrderCreatedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				Email:            order.Email,
				FullName:         order.FullName,
				Currency:         order.Currency,
				OrderTotal:       recalculated.OrderTotal,
				DeliveryCost:     recalculated.DeliveryCost,
				GrandTotal:       recalculated.GrandTotal,
				LineItemCount:    len(items),
				PaymentReference: reference,
				Source:           input.Source,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		stored, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			m.logg.Error(m.logg.WithField(ctx, "payment_reference", reference), "order materialization failed", err)
		}
		return nil, err
	}

	logCtx := m.logg.WithOrderNumber(ctx, stored.OrderNumber)
	if reissue {
		m.logg.Info(m.logg.WithField(logCtx, "payment_reference", reference), "order already stored for payment")
		return stored, nil
	}
	m.metrics.OrderCreated(input.Source)
	m.logg.Info(m.logg.WithFields(logCtx, map[string]any{
		"source":      input.Source,
		"line_items":  len(stored.LineItems),
		"grand_total": stored.GrandTotal.StringFixed(money.Places),
	}), "order materialized")
	return stored, nil
}

func (m *Materializer) lineItems(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, b *bag.Bag) ([]models.OrderLineItem, error) {
	found, err := m.products.WithTx(tx).FindByIDs(ctx, b.ProductIDs())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bag products")
	}

	var items []models.OrderLineItem
	var missing error
	b.Each(func(productID int64, entry bag.Entry) {
		if missing != nil {
			return
		}
		product, ok := found[productID]
		if !ok {
			missing = bag.MissingProductError(productID)
			return
		}
		for _, line := range entry.Lines() {
			items = append(items, models.OrderLineItem{
				OrderID:   orderID,
				ProductID: product.ID,
				Size:      optional(line.Size),
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
			})
		}
	})
	if missing != nil {
		return nil, missing
	}
	return items, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
