package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountKind distinguishes percentage discounts from fixed amounts.
type DiscountKind int

const (
	// DiscountPercent applies Value as a percentage of the subtotal.
	DiscountPercent DiscountKind = iota + 1
	// DiscountFixed applies Value as an absolute amount.
	DiscountFixed
)

// Discount is the tagged union a discount input is parsed into at the input
// boundary. It is never stored or passed around as a raw string.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// NoDiscount is the zero discount.
var NoDiscount = Discount{}

// IsZero reports whether the discount has no effect.
func (d Discount) IsZero() bool {
	return d.Kind == 0 || d.Value.IsZero()
}

// String renders the discount back in input form ("10%" or "50").
func (d Discount) String() string {
	if d.Kind == DiscountPercent {
		return d.Value.String() + "%"
	}
	return d.Value.String()
}

// ParseDiscount parses a discount input string. A trailing "%" makes it a
// percentage, anything else a fixed amount. The empty string is no discount.
// Negative values are rejected; over-large values (a percentage above 100,
// a fixed amount above the subtotal) are accepted here and clamped when the
// discount is applied.
func ParseDiscount(s string) (Discount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoDiscount, nil
	}

	kind := DiscountFixed
	if strings.HasSuffix(s, "%") {
		kind = DiscountPercent
		s = strings.TrimSuffix(s, "%")
	}

	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return NoDiscount, fmt.Errorf("invalid discount %q: %w", s, err)
	}
	if v.IsNegative() {
		return NoDiscount, fmt.Errorf("invalid discount %q: must not be negative", s)
	}

	return Discount{Kind: kind, Value: v}, nil
}

// AmountOff resolves the discount against a subtotal, clamping the result
// to [0, subtotal]. The second return reports whether clamping corrected
// the input (a percentage above 100, or a fixed amount above the subtotal).
func (d Discount) AmountOff(subtotal decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsZero() {
		return decimal.Zero, false
	}

	var amount decimal.Decimal
	clamped := false

	switch d.Kind {
	case DiscountPercent:
		pct := d.Value
		if pct.GreaterThan(oneHundred) {
			pct = oneHundred
			clamped = true
		}
		amount = subtotal.Mul(pct).Div(oneHundred)
	default:
		amount = d.Value
	}

	amount = amount.Round(2)
	if amount.GreaterThan(subtotal) {
		amount = subtotal
		clamped = true
	}
	if amount.IsNegative() {
		amount = decimal.Zero
		clamped = true
	}
	return amount, clamped
}

var oneHundred = decimal.NewFromInt(100)
