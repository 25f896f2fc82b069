package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func act(typ ActivityType, amount string, method PaymentMethod) CashDrawerActivity {
	return CashDrawerActivity{Type: typ, Amount: d(amount), PaymentMethod: method}
}

func TestExpectedCash_Scenario(t *testing.T) {
	// Opening float 500; cash sale 220; QR sale 150; paid-out 50.
	// Expected cash = 500 + 220 - 50 = 670; net sales = 370.
	acts := []CashDrawerActivity{
		act(ActShiftStart, "500", PayNone),
		act(ActSale, "220", PayCash),
		act(ActSale, "150", PayQR),
		act(ActPaidOut, "50", PayCash),
	}

	totals := DrawerTotals(acts)
	expected := ExpectedCash(d("500"), totals)

	assert.True(t, expected.Equal(d("670")), "expected cash = %s", expected)
	assert.True(t, totals.NetSales().Equal(d("370")), "net sales = %s", totals.NetSales())
}

func TestExpectedCash_Formula(t *testing.T) {
	// F + Σ(cash sales) + Σ(paid-in) - Σ(paid-out) - Σ(cash refunds);
	// QR and MANUAL_OPEN excluded.
	acts := []CashDrawerActivity{
		act(ActSale, "100", PayCash),
		act(ActSale, "40.50", PayCash),
		act(ActSale, "999", PayQR),
		act(ActPaidIn, "25", PayNone),
		act(ActPaidIn, "10", PayNone),
		act(ActPaidOut, "30", PayNone),
		act(ActRefund, "15.50", PayCash),
		act(ActRefund, "200", PayQR),
		act(ActManualOpen, "0", PayNone),
	}

	got := ExpectedCash(d("300"), DrawerTotals(acts))

	// 300 + 140.50 + 35 - 30 - 15.50 = 430
	assert.True(t, got.Equal(d("430")), "expected cash = %s", got)
}

func TestDrawerTotals_IgnoresMarkers(t *testing.T) {
	acts := []CashDrawerActivity{
		act(ActShiftStart, "500", PayNone),
		act(ActShiftEnd, "670", PayNone),
		act(ActManualOpen, "0", PayNone),
	}

	totals := DrawerTotals(acts)

	assert.True(t, totals.SalesCash.IsZero())
	assert.True(t, totals.PaidIn.IsZero())
	assert.True(t, totals.PaidOut.IsZero())
	assert.True(t, totals.NetSales().IsZero())
}

func TestReconcile_FreezesCloseFigures(t *testing.T) {
	s := Shift{ID: "2026-08-29-S1", Status: ShiftOpen, OpeningFloat: d("500")}
	acts := []CashDrawerActivity{
		act(ActShiftStart, "500", PayNone),
		act(ActSale, "220", PayCash),
		act(ActSale, "150", PayQR),
		act(ActPaidOut, "50", PayCash),
	}

	closed := Reconcile(s, acts, d("665"), d("400"))

	assert.Equal(t, ShiftClosed, closed.Status)
	assert.True(t, closed.ExpectedCash.Equal(d("670")))
	assert.True(t, closed.CashOverShort.Equal(d("-5")), "over/short = %s", closed.CashOverShort)
	assert.True(t, closed.CashToDeposit.Equal(d("265")), "deposit = %s", closed.CashToDeposit)
	assert.True(t, closed.ClosingCashCounted.Equal(d("665")))
	assert.True(t, closed.CashForNextShift.Equal(d("400")))
	assert.True(t, closed.Totals.SalesCash.Equal(d("220")))
	assert.True(t, closed.Totals.SalesQR.Equal(d("150")))
	assert.True(t, closed.Totals.PaidOut.Equal(d("50")))
}

func TestReversal_NegatesEverything(t *testing.T) {
	cr := d("250")
	orig := Order{
		ID: "2026-08-29-0007",
		Items: []OrderItem{
			{Name: "Latte", Price: d("3.50"), Quantity: 2},
			{Name: "Bagel", Price: d("4.00"), Quantity: 1},
		},
		Subtotal:           d("11.00"),
		DiscountValue:      d("1.00"),
		ServiceChargeValue: d("1.00"),
		Tax:                d("0.77"),
		Total:              d("11.77"),
		PaymentMethod:      PayCash,
		CashReceived:       &cr,
		Status:             StatusCompleted,
		SyncStatus:         SyncSynced,
	}

	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	rev := orig.Reversal(now)

	assert.Equal(t, "R-2026-08-29-0007", rev.ID)
	assert.Equal(t, "2026-08-29-0007", rev.ReversalOf)
	assert.Equal(t, SyncPending, rev.SyncStatus)
	assert.Equal(t, now, rev.Timestamp)
	assert.True(t, rev.Total.Equal(d("-11.77")), "total = %s", rev.Total)
	assert.True(t, rev.Subtotal.Equal(d("-11.00")))
	assert.True(t, rev.DiscountValue.Equal(d("-1.00")))
	assert.True(t, rev.ServiceChargeValue.Equal(d("-1.00")))
	assert.True(t, rev.Tax.Equal(d("-0.77")))
	for i := range orig.Items {
		assert.Equal(t, -orig.Items[i].Quantity, rev.Items[i].Quantity, "item %d", i)
		assert.True(t, rev.Items[i].Price.Equal(orig.Items[i].Price), "item %d price", i)
	}
	assert.True(t, rev.IsReversal())
	assert.False(t, orig.IsReversal())
}

func TestOrderStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, StatusCooking.CanAdvanceTo(StatusReady))
	assert.True(t, StatusCooking.CanAdvanceTo(StatusCompleted))
	assert.True(t, StatusReady.CanAdvanceTo(StatusCompleted))

	assert.False(t, StatusReady.CanAdvanceTo(StatusCooking))
	assert.False(t, StatusCompleted.CanAdvanceTo(StatusReady))
	assert.False(t, StatusCompleted.CanAdvanceTo(StatusCompleted))
	assert.False(t, StatusCancelled.CanAdvanceTo(StatusCompleted))
	assert.False(t, StatusCooking.CanAdvanceTo(StatusCancelled))
}
