package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testPricing() Pricing {
	return Pricing{
		Currency:              "eur",
		FreeDeliveryThreshold: decimal.NewFromInt(50),
		DeliveryPercentage:    decimal.NewFromInt(5),
	}
}

func TestComputeAtThresholdIsFree(t *testing.T) {
	totals := testPricing().Compute(decimal.NewFromInt(50))
	if !totals.DeliveryFee.IsZero() {
		t.Fatalf("expected free delivery at threshold, got %s", totals.DeliveryFee)
	}
	if !totals.FreeDeliveryDelta.IsZero() {
		t.Fatalf("expected zero delta, got %s", totals.FreeDeliveryDelta)
	}
	if totals.GrandTotal.StringFixed(2) != "50.00" {
		t.Fatalf("unexpected grand total %s", totals.GrandTotal)
	}
}

func TestComputeBelowThreshold(t *testing.T) {
	totals := testPricing().Compute(decimal.NewFromInt(40))
	if totals.DeliveryFee.StringFixed(2) != "2.00" {
		t.Fatalf("expected 2.00 delivery, got %s", totals.DeliveryFee)
	}
	if totals.FreeDeliveryDelta.StringFixed(2) != "10.00" {
		t.Fatalf("expected 10.00 delta, got %s", totals.FreeDeliveryDelta)
	}
	if !totals.GrandTotal.Equal(totals.Subtotal.Add(totals.DeliveryFee)) {
		t.Fatalf("grand total must equal subtotal + delivery")
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	totals := testPricing().Compute(decimal.RequireFromString("37.50"))
	if totals.DeliveryFee.StringFixed(2) != "1.88" {
		t.Fatalf("expected 1.875 to round to 1.88, got %s", totals.DeliveryFee)
	}
	if totals.GrandTotal.StringFixed(2) != "39.38" {
		t.Fatalf("expected grand total 39.38, got %s", totals.GrandTotal)
	}
}

func TestComputeEmpty(t *testing.T) {
	totals := testPricing().Compute(decimal.Zero)
	if !totals.DeliveryFee.IsZero() || !totals.GrandTotal.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"39.38":  3938,
		"0.005":  1,
		"12.344": 1234,
		"0":      0,
	}
	for in, want := range cases {
		if got := ToMinorUnits(decimal.RequireFromString(in)); got != want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", in, got, want)
		}
	}
	if got := FromMinorUnits(3938).StringFixed(2); got != "39.38" {
		t.Fatalf("FromMinorUnits(3938) = %s", got)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency(" EUR "); got != "eur" {
		t.Fatalf("unexpected currency %q", got)
	}
}
