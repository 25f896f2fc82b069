package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func standardPricing() Pricing {
	return Pricing{
		ServiceChargeEnabled: true,
		ServiceChargePercent: d("10"),
		TaxEnabled:           true,
		TaxPercent:           d("7"),
	}
}

func TestComputeTotals_NoAdjustments(t *testing.T) {
	items := []OrderItem{
		{Name: "Latte", Price: d("3.50"), Quantity: 2},
		{Name: "Croissant", Price: d("2.25"), Quantity: 1},
	}

	got := ComputeTotals(items, NoDiscount, Pricing{})

	assert.True(t, got.Subtotal.Equal(d("9.25")), "subtotal = %s", got.Subtotal)
	assert.True(t, got.Discount.IsZero())
	assert.True(t, got.ServiceCharge.IsZero())
	assert.True(t, got.Tax.IsZero())
	assert.True(t, got.Total.Equal(d("9.25")), "total = %s", got.Total)
}

func TestComputeTotals_FullPipeline(t *testing.T) {
	// subtotal 200, 10% discount -> 180, 10% service -> 18, 7% VAT on 198 -> 13.86
	items := []OrderItem{{Name: "Set menu", Price: d("100"), Quantity: 2}}
	disc, err := ParseDiscount("10%")
	require.NoError(t, err)

	got := ComputeTotals(items, disc, standardPricing())

	assert.True(t, got.Discount.Equal(d("20")), "discount = %s", got.Discount)
	assert.True(t, got.ServiceCharge.Equal(d("18")), "service = %s", got.ServiceCharge)
	assert.True(t, got.Tax.Equal(d("13.86")), "tax = %s", got.Tax)
	assert.True(t, got.Total.Equal(d("211.86")), "total = %s", got.Total)
	assert.False(t, got.DiscountClamped)
}

func TestComputeTotals_TotalIdentity(t *testing.T) {
	// total == max(0, subtotal - discount + serviceCharge + tax) must hold
	// across discount shapes.
	items := []OrderItem{{Name: "Plate", Price: d("37.40"), Quantity: 3}}
	for _, in := range []string{"", "5", "12.5%", "100%", "999"} {
		disc, err := ParseDiscount(in)
		require.NoError(t, err, "input %q", in)

		got := ComputeTotals(items, disc, standardPricing())

		want := got.Subtotal.Sub(got.Discount).Add(got.ServiceCharge).Add(got.Tax)
		if want.IsNegative() {
			want = decimal.Zero
		}
		assert.True(t, got.Total.Equal(want), "input %q: total %s want %s", in, got.Total, want)
		assert.False(t, got.Total.IsNegative(), "input %q: negative total", in)
	}
}

func TestComputeTotals_OverlargePercentClamped(t *testing.T) {
	// "150%" on subtotal 200 is corrected to 100%: discountValue = 200 and
	// the total is service charge + tax only.
	items := []OrderItem{{Name: "Banquet", Price: d("200"), Quantity: 1}}
	disc, err := ParseDiscount("150%")
	require.NoError(t, err)

	got := ComputeTotals(items, disc, standardPricing())

	assert.True(t, got.DiscountClamped, "expected clamp warning")
	assert.True(t, got.Discount.Equal(d("200")), "discount = %s", got.Discount)
	assert.True(t, got.ServiceCharge.IsZero(), "service on zero base")
	assert.True(t, got.Tax.IsZero(), "tax on zero base")
	assert.True(t, got.Total.IsZero(), "total = %s", got.Total)
}

func TestComputeTotals_FixedDiscountAboveSubtotal(t *testing.T) {
	items := []OrderItem{{Name: "Espresso", Price: d("2.00"), Quantity: 1}}
	disc, err := ParseDiscount("50")
	require.NoError(t, err)

	got := ComputeTotals(items, disc, Pricing{})

	assert.True(t, got.DiscountClamped)
	assert.True(t, got.Discount.Equal(d("2.00")), "discount = %s", got.Discount)
	assert.True(t, got.Total.IsZero())
}

func TestComputeTotals_DisabledStagesSkipped(t *testing.T) {
	items := []OrderItem{{Name: "Tea", Price: d("10"), Quantity: 1}}
	p := Pricing{ServiceChargePercent: d("10"), TaxPercent: d("7")} // both disabled

	got := ComputeTotals(items, NoDiscount, p)

	assert.True(t, got.ServiceCharge.IsZero())
	assert.True(t, got.Tax.IsZero())
	assert.True(t, got.Total.Equal(d("10")))
}

func TestParseDiscount(t *testing.T) {
	cases := []struct {
		in      string
		kind    DiscountKind
		value   string
		wantErr bool
	}{
		{in: "", kind: 0, value: "0"},
		{in: "10%", kind: DiscountPercent, value: "10"},
		{in: " 12.5% ", kind: DiscountPercent, value: "12.5"},
		{in: "50", kind: DiscountFixed, value: "50"},
		{in: "150%", kind: DiscountPercent, value: "150"}, // clamped at apply time
		{in: "-5", wantErr: true},
		{in: "-5%", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "%", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseDiscount(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.kind, got.Kind, "input %q", tc.in)
		assert.True(t, got.Value.Equal(d(tc.value)), "input %q: value %s", tc.in, got.Value)
	}
}
