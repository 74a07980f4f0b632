package bag

import (
	"fmt"
	"strings"

	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
)

// NormalizeSize trims surrounding whitespace from a size label.
func NormalizeSize(size string) string {
	return strings.TrimSpace(size)
}

// Add increments the (product, size) line by qty, creating it if absent.
func (b *Bag) Add(productID int64, qty int, size string) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	size = NormalizeSize(size)

	current, exists := b.entries[productID]
	if !exists {
		if size == "" {
			b.put(productID, Simple(qty))
		} else {
			b.put(productID, Sized(SizeQuantity{Size: size, Quantity: qty}))
		}
		return nil
	}

	if err := checkShape(productID, current, size); err != nil {
		return err
	}
	if current.kind == KindSimple {
		current.quantity += qty
		b.put(productID, current)
		return nil
	}

	sizes := current.Sizes()
	if idx := current.sizeIndex(size); idx >= 0 {
		sizes[idx].Quantity += qty
	} else {
		sizes = append(sizes, SizeQuantity{Size: size, Quantity: qty})
	}
	b.put(productID, Sized(sizes...))
	return nil
}

// Adjust sets the (product, size) line to qty, creating it when absent. A
// qty of zero or less removes the line, and the whole entry once no sizes
// remain; removing a line that is not there is a lookup failure.
func (b *Bag) Adjust(productID int64, qty int, size string) error {
	size = NormalizeSize(size)
	current, exists := b.entries[productID]
	if !exists {
		if qty <= 0 {
			return missingEntry(productID, size)
		}
		return b.Add(productID, qty, size)
	}
	if err := checkShape(productID, current, size); err != nil {
		return err
	}

	if current.kind == KindSimple {
		if qty <= 0 {
			b.delete(productID)
			return nil
		}
		b.put(productID, Simple(qty))
		return nil
	}

	idx := current.sizeIndex(size)
	switch {
	case idx < 0 && qty <= 0:
		return missingEntry(productID, size)
	case qty <= 0:
		b.removeSize(productID, current, idx)
		return nil
	}
	sizes := current.Sizes()
	if idx < 0 {
		sizes = append(sizes, SizeQuantity{Size: size, Quantity: qty})
	} else {
		sizes[idx].Quantity = qty
	}
	b.put(productID, Sized(sizes...))
	return nil
}

// Remove deletes the (product, size) line. Removing something that is not
// in the bag is a lookup failure.
func (b *Bag) Remove(productID int64, size string) error {
	size = NormalizeSize(size)
	current, exists := b.entries[productID]
	if !exists {
		return missingEntry(productID, size)
	}

	if current.kind == KindSimple {
		if size != "" {
			return missingEntry(productID, size)
		}
		b.delete(productID)
		return nil
	}

	if size == "" {
		// No size on a sized entry drops every size of the product.
		b.delete(productID)
		return nil
	}
	idx := current.sizeIndex(size)
	if idx < 0 {
		return missingEntry(productID, size)
	}
	b.removeSize(productID, current, idx)
	return nil
}

func (b *Bag) removeSize(productID int64, current Entry, idx int) {
	sizes := current.Sizes()
	sizes = append(sizes[:idx], sizes[idx+1:]...)
	if len(sizes) == 0 {
		b.delete(productID)
		return
	}
	b.put(productID, Sized(sizes...))
}

func checkShape(productID int64, current Entry, size string) error {
	switch {
	case current.kind == KindSimple && size != "":
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %d is not sold in sizes", productID)).
			WithDetails(map[string]string{"size": "must be empty for this product"})
	case current.kind == KindSized && size == "":
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %d requires a size", productID)).
			WithDetails(map[string]string{"size": "is required"})
	}
	return nil
}

func missingEntry(productID int64, size string) error {
	if size == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d is not in your bag", productID))
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("size %s of product %d is not in your bag", size, productID))
}
