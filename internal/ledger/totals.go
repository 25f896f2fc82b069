package ledger

import "github.com/shopspring/decimal"

// Pricing holds the terminal's pricing configuration: whether and at what
// rate service charge and VAT apply.
type Pricing struct {
	ServiceChargeEnabled bool
	ServiceChargePercent decimal.Decimal
	TaxEnabled           bool
	TaxPercent           decimal.Decimal
}

// Totals is the result of the pure pricing pipeline.
type Totals struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	ServiceCharge decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal

	// DiscountClamped reports that the discount input exceeded its valid
	// range and was corrected rather than rejected.
	DiscountClamped bool
}

// Subtotal sums the line totals of the given items.
func Subtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum.Round(2)
}

// ComputeTotals runs the pricing pipeline over a cart:
//
//  1. discount, resolved against the subtotal and clamped to [0, subtotal]
//  2. service charge, a percentage of the discounted subtotal (if enabled)
//  3. VAT, a percentage of discounted subtotal plus service charge (if enabled)
//
// and Total = max(0, subtotal - discount + serviceCharge + tax).
// Each stage rounds to 2 decimal places.
func ComputeTotals(items []OrderItem, disc Discount, p Pricing) Totals {
	t := Totals{Subtotal: Subtotal(items)}

	t.Discount, t.DiscountClamped = disc.AmountOff(t.Subtotal)
	discounted := t.Subtotal.Sub(t.Discount)

	if p.ServiceChargeEnabled && !p.ServiceChargePercent.IsZero() {
		t.ServiceCharge = discounted.Mul(p.ServiceChargePercent).Div(oneHundred).Round(2)
	}
	if p.TaxEnabled && !p.TaxPercent.IsZero() {
		t.Tax = discounted.Add(t.ServiceCharge).Mul(p.TaxPercent).Div(oneHundred).Round(2)
	}

	t.Total = discounted.Add(t.ServiceCharge).Add(t.Tax)
	if t.Total.IsNegative() {
		t.Total = decimal.Zero
	}
	return t
}
