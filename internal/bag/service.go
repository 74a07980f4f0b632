package bag

import (
	"context"
	"fmt"

	"github.com/little-explorers/storefront/pkg/db"
	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/money"
)

type catalog interface {
	ProductLookup
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

type sessionBags interface {
	Load(ctx context.Context, sessionID string) (*Bag, error)
	Save(ctx context.Context, sessionID string, b *Bag) error
}

// PricingSource supplies the pricing rules in force for the current request.
type PricingSource interface {
	Pricing(ctx context.Context) (money.Pricing, error)
}

type ServiceParams struct {
	Store    sessionBags
	Products catalog
	Pricing  PricingSource
	Logger   *logger.Logger
}

// Service exposes the bag operations behind the bag endpoints.
type Service struct {
	store    sessionBags
	products catalog
	pricing  PricingSource
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bag store required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing source required")
	}
	return &Service{
		store:    params.Store,
		products: params.Products,
		pricing:  params.Pricing,
		logg:     params.Logger,
	}, nil
}

// MutationInput is the payload of add and adjust requests.
type MutationInput struct {
	ProductID int64
	Quantity  int
	Size      string
}

// Contents summarizes the session's bag.
func (s *Service) Contents(ctx context.Context, sessionID string) (*Summary, error) {
	b, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.Pricing(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(ctx, b, s.products, pricing)
}

// Load returns the raw bag of a session.
func (s *Service) Load(ctx context.Context, sessionID string) (*Bag, error) {
	return s.store.Load(ctx, sessionID)
}

// Add puts qty units of a product in the bag.
func (s *Service) Add(ctx context.Context, sessionID string, input MutationInput) (*Bag, error) {
	if err := s.checkProduct(ctx, input.ProductID, input.Size); err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, "bag.add", func(b *Bag) error {
		return b.Add(input.ProductID, input.Quantity, input.Size)
	})
}

// Adjust sets the quantity of a bag line, removing it when qty <= 0.
func (s *Service) Adjust(ctx context.Context, sessionID string, input MutationInput) (*Bag, error) {
	if input.Quantity > 0 {
		if err := s.checkProduct(ctx, input.ProductID, input.Size); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, sessionID, "bag.adjust", func(b *Bag) error {
		return b.Adjust(input.ProductID, input.Quantity, input.Size)
	})
}

// Remove deletes a bag line.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64, size string) (*Bag, error) {
	return s.mutate(ctx, sessionID, "bag.remove", func(b *Bag) error {
		return b.Remove(productID, size)
	})
}

// mutate applies fn to the loaded bag and saves it. On error nothing is
// written, so the stored bag stays as it was.
func (s *Service) mutate(ctx context.Context, sessionID, op string, fn func(b *Bag) error) (*Bag, error) {
	b, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sessionID, b); err != nil {
		return nil, err
	}
	s.logg.Debug(s.logg.WithField(ctx, "items", b.TotalQuantity()), op)
	return b, nil
}

func (s *Service) checkProduct(ctx context.Context, productID int64, size string) error {
	product, err := s.products.FindByID(ctx, productID)
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", productID))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	size = NormalizeSize(size)
	switch {
	case product.HasSizes && size == "":
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("please select a size for %s", product.Name)).
			WithDetails(map[string]string{"size": "is required"})
	case !product.HasSizes && size != "":
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not sold in sizes", product.Name)).
			WithDetails(map[string]string{"size": "must be empty for this product"})
	}
	return nil
}
