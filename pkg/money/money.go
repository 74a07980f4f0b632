package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the fixed-point precision applied to every stored amount.
const Places int32 = 2

var hundred = decimal.NewFromInt(100)

// Pricing carries the delivery rules in force for a single request.
type Pricing struct {
	Currency              string
	FreeDeliveryThreshold decimal.Decimal
	DeliveryPercentage    decimal.Decimal
}

// Totals is the derived delivery breakdown for a subtotal.
type Totals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	DeliveryFee       decimal.Decimal `json:"delivery_fee"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	FreeDeliveryDelta decimal.Decimal `json:"free_delivery_delta"`
}

// Round applies half-up rounding to two places. Amounts in this system are
// never negative, so half-away-from-zero is equivalent.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// DeliveryFee returns the standard delivery charge for subtotal, or zero
// once the free delivery threshold is reached.
func (p Pricing) DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return Round(subtotal.Mul(p.DeliveryPercentage).Div(hundred))
}

// Compute derives delivery fee, grand total and the distance to free delivery.
func (p Pricing) Compute(subtotal decimal.Decimal) Totals {
	subtotal = Round(subtotal)
	fee := p.DeliveryFee(subtotal)
	delta := decimal.Zero
	if subtotal.LessThan(p.FreeDeliveryThreshold) {
		delta = Round(p.FreeDeliveryThreshold.Sub(subtotal))
	}
	return Totals{
		Subtotal:          subtotal,
		DeliveryFee:       fee,
		GrandTotal:        subtotal.Add(fee),
		FreeDeliveryDelta: delta,
	}
}

// ToMinorUnits converts an amount into integer minor units (cents),
// rounding to the nearest unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(Places).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.NewFromInt(units).Shift(-Places)
}

// NormalizeCurrency lower-cases an ISO currency code for the processor API.
func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
