package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/internal/products"
	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/pagination"
)

type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Products *products.Repository
	Pricing  PricingSource
	Logger   *logger.Logger
}

// Service serves order reads and the line-item write paths. Every write
// recalculates the order totals in the same transaction.
type Service struct {
	repo     Repository
	tx       txRunner
	products *products.Repository
	pricing  PricingSource
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product reader required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing source required")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		products: params.Products,
		pricing:  params.Pricing,
		logg:     params.Logger,
	}, nil
}

// LineItemInput adds a product (and optional size) to an existing order.
type LineItemInput struct {
	ProductID int64
	Size      *string
	Quantity  int
}

func (s *Service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	return order, nil
}

// OrderPage is one page of a customer's order history.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}

func (s *Service) ListForProfile(ctx context.Context, profileID uuid.UUID, page pagination.Params) (*OrderPage, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile required")
	}
	if _, err := pagination.ParseCursor(page.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, next, err := s.repo.ListByProfile(ctx, profileID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderPage{Orders: orders, NextCursor: next}, nil
}

func (s *Service) AddLineItem(ctx context.Context, orderNumber string, input LineItemInput) (*models.Order, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.writeLineItems(ctx, orderNumber, "order.line_item.add", func(tx *gorm.DB, repo Repository, order *models.Order) error {
		product, err := s.loadProduct(ctx, tx, input.ProductID)
		if err != nil {
			return err
		}
		item := models.OrderLineItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Size:      input.Size,
			Quantity:  input.Quantity,
			UnitPrice: product.Price,
		}
		if err := repo.CreateLineItems(ctx, []models.OrderLineItem{item}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line item")
		}
		return nil
	})
}

// UpdateLineItemQuantity changes a line's quantity and reprices it at the
// product's current price.
func (s *Service) UpdateLineItemQuantity(ctx context.Context, orderNumber string, lineItemID uuid.UUID, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.writeLineItems(ctx, orderNumber, "order.line_item.update", func(tx *gorm.DB, repo Repository, order *models.Order) error {
		item, err := s.ownedLineItem(ctx, repo, order, lineItemID)
		if err != nil {
			return err
		}
		product, err := s.loadProduct(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		item.Quantity = quantity
		item.UnitPrice = product.Price
		if err := repo.SaveLineItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line item")
		}
		return nil
	})
}

func (s *Service) DeleteLineItem(ctx context.Context, orderNumber string, lineItemID uuid.UUID) (*models.Order, error) {
	return s.writeLineItems(ctx, orderNumber, "order.line_item.delete", func(tx *gorm.DB, repo Repository, order *models.Order) error {
		item, err := s.ownedLineItem(ctx, repo, order, lineItemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteLineItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete line item")
		}
		return nil
	})
}

func (s *Service) writeLineItems(ctx context.Context, orderNumber, op string, fn func(tx *gorm.DB, repo Repository, order *models.Order) error) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	pricing, err := s.pricing.Pricing(ctx)
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return mapOrderErr(err)
		}
		if err := fn(tx, repo, order); err != nil {
			return err
		}
		if _, err := Recalculate(ctx, tx, order.ID, pricing); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNumber(ctx, updated.OrderNumber)
	logCtx = s.logg.WithField(logCtx, "op", op)
	s.logg.Info(logCtx, "order totals recalculated")
	return updated, nil
}

func (s *Service) ownedLineItem(ctx context.Context, repo Repository, order *models.Order, lineItemID uuid.UUID) (*models.OrderLineItem, error) {
	if lineItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
	}
	item, err := repo.FindLineItem(ctx, lineItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line item")
	}
	if item.OrderID != order.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
	}
	return item, nil
}

func (s *Service) loadProduct(ctx context.Context, tx *gorm.DB, productID int64) (*models.Product, error) {
	product, err := s.products.WithTx(tx).FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func mapOrderErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
