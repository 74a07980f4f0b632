package bag

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/money"
)

// ProductLookup resolves the products referenced by a bag.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

// LineItem is one expanded (product, size) line of a bag.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Size      *string         `json:"size,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Summary is the derived view of a bag. It is computed on demand and never
// stored.
type Summary struct {
	LineItems    []LineItem `json:"line_items"`
	ProductCount int        `json:"product_count"`
	Currency     string     `json:"currency"`
	money.Totals
}

// Summarize prices every line of b. A product that no longer exists fails
// the whole computation. b is only read.
func Summarize(ctx context.Context, b *Bag, products ProductLookup, pricing money.Pricing) (*Summary, error) {
	if b == nil {
		b = New()
	}
	found, err := products.FindByIDs(ctx, b.ProductIDs())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bag products")
	}

	summary := &Summary{LineItems: []LineItem{}, Currency: pricing.Currency}
	subtotal := decimal.Zero
	var missing error

	b.Each(func(productID int64, entry Entry) {
		if missing != nil {
			return
		}
		product, ok := found[productID]
		if !ok {
			missing = MissingProductError(productID)
			return
		}
		for _, line := range entry.Lines() {
			item := LineItem{
				ProductID: productID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				LineTotal: product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			if line.Size != "" {
				size := line.Size
				item.Size = &size
			}
			subtotal = subtotal.Add(item.LineTotal)
			summary.ProductCount += line.Quantity
			summary.LineItems = append(summary.LineItems, item)
		}
	})
	if missing != nil {
		return nil, missing
	}

	summary.Totals = pricing.Compute(subtotal)
	return summary, nil
}

// MissingProductError is the lookup failure raised for a bag entry whose
// product was deleted from the catalog.
func MissingProductError(productID int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound,
		fmt.Sprintf("product %d in your bag no longer exists, please remove it", productID)).
		WithDetails(map[string]any{"product_id": productID})
}
