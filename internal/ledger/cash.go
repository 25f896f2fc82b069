package ledger

import "github.com/shopspring/decimal"

// DrawerTotals folds a shift's activity log into per-method totals.
//
// SHIFT_START, SHIFT_END and MANUAL_OPEN are audit markers and contribute
// nothing; MANUAL_OPEN in particular always carries amount zero.
func DrawerTotals(activities []CashDrawerActivity) ShiftTotals {
	var t ShiftTotals
	for _, a := range activities {
		switch a.Type {
		case ActSale:
			if a.PaymentMethod == PayCash {
				t.SalesCash = t.SalesCash.Add(a.Amount)
			} else if a.PaymentMethod == PayQR {
				t.SalesQR = t.SalesQR.Add(a.Amount)
			}
		case ActRefund:
			if a.PaymentMethod == PayCash {
				t.RefundsCash = t.RefundsCash.Add(a.Amount)
			} else if a.PaymentMethod == PayQR {
				t.RefundsQR = t.RefundsQR.Add(a.Amount)
			}
		case ActPaidIn:
			t.PaidIn = t.PaidIn.Add(a.Amount)
		case ActPaidOut:
			t.PaidOut = t.PaidOut.Add(a.Amount)
		}
	}
	return t
}

// ExpectedCash returns the cash a correctly-reconciled drawer should hold:
//
//	openingFloat + cash sales + paid-ins - paid-outs - cash refunds
//
// QR tender never passes through the drawer and is excluded.
func ExpectedCash(openingFloat decimal.Decimal, t ShiftTotals) decimal.Decimal {
	return openingFloat.
		Add(t.SalesCash).
		Add(t.PaidIn).
		Sub(t.PaidOut).
		Sub(t.RefundsCash)
}

// Reconcile freezes close-time figures into the shift: expected cash,
// over/short against the counted amount, the deposit after carving out the
// next shift's float, and the per-method totals. The shift is returned
// CLOSED; callers persist it and never recompute these fields.
func Reconcile(s Shift, activities []CashDrawerActivity, counted, nextFloat decimal.Decimal) Shift {
	totals := DrawerTotals(activities)
	expected := ExpectedCash(s.OpeningFloat, totals)
	overShort := counted.Sub(expected)
	toDeposit := counted.Sub(nextFloat)

	s.Status = ShiftClosed
	s.ClosingCashCounted = &counted
	s.CashForNextShift = &nextFloat
	s.ExpectedCash = &expected
	s.CashOverShort = &overShort
	s.CashToDeposit = &toDeposit
	s.Totals = &totals
	return s
}
