package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/coppertill/till/internal/ledger"
)

const (
	timeLayout = "15:04:05"
	rule       = "----------------------------------------"
	doubleRule = "========================================"
)

// money renders a decimal amount with locale-aware grouping and exactly
// two fraction digits.
func money(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Float64()
	return p.Sprint(number.Decimal(f,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2)))
}

// RenderDay writes the human-readable day report.
func RenderDay(w io.Writer, rep *DayReport) {
	p := message.NewPrinter(language.English)

	fmt.Fprintf(w, "DAILY REPORT  %s\n", rep.Date)
	fmt.Fprintln(w, doubleRule)
	fmt.Fprintf(w, "%-24s %14s\n", "Gross sales", money(p, rep.GrossSales))
	fmt.Fprintf(w, "%-24s %14d\n", "Transactions", rep.TransactionCount)
	fmt.Fprintf(w, "%-24s %14s\n", "Refunds", money(p, rep.Refunds))
	fmt.Fprintf(w, "%-24s %14s\n", "Net sales", money(p, rep.NetSales))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-24s %14s\n", "Cash sales", money(p, rep.CashSales))
	fmt.Fprintf(w, "%-24s %14s\n", "QR sales", money(p, rep.QRSales))
	if rep.Cancelled > 0 {
		fmt.Fprintf(w, "%-24s %14d\n", "Cancelled orders", rep.Cancelled)
	}

	if len(rep.Shifts) > 0 {
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "Shifts")
		for _, s := range rep.Shifts {
			fmt.Fprintf(w, "  %s  %s  float %s", s.ID, s.Status, money(p, s.OpeningFloat))
			if s.CashOverShort != nil {
				fmt.Fprintf(w, "  over/short %s", money(p, *s.CashOverShort))
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, doubleRule)
}

// RenderShift writes the human-readable Z-report for one shift. Closed
// shifts show the figures frozen at close; open shifts show live drawer
// totals.
func RenderShift(w io.Writer, rep *ShiftReport) {
	p := message.NewPrinter(language.English)
	s := rep.Shift

	fmt.Fprintf(w, "SHIFT REPORT  %s  [%s]\n", s.ID, s.Status)
	fmt.Fprintln(w, doubleRule)
	fmt.Fprintf(w, "%-24s %14s\n", "Started", s.StartTime.Format(timeLayout))
	if s.EndTime != nil {
		fmt.Fprintf(w, "%-24s %14s\n", "Ended", s.EndTime.Format(timeLayout))
	}
	fmt.Fprintf(w, "%-24s %14s\n", "Opening float", money(p, s.OpeningFloat))

	totals := s.Totals
	expected := s.ExpectedCash
	if totals == nil {
		totals = rep.LiveTotals
		expected = rep.LiveExpectedCash
	}
	if totals != nil {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%-24s %14s\n", "Cash sales", money(p, totals.SalesCash))
		fmt.Fprintf(w, "%-24s %14s\n", "QR sales", money(p, totals.SalesQR))
		fmt.Fprintf(w, "%-24s %14s\n", "Cash refunds", money(p, totals.RefundsCash))
		fmt.Fprintf(w, "%-24s %14s\n", "QR refunds", money(p, totals.RefundsQR))
		fmt.Fprintf(w, "%-24s %14s\n", "Paid in", money(p, totals.PaidIn))
		fmt.Fprintf(w, "%-24s %14s\n", "Paid out", money(p, totals.PaidOut))
		fmt.Fprintf(w, "%-24s %14s\n", "Net sales", money(p, totals.NetSales()))
	}
	if expected != nil {
		fmt.Fprintf(w, "%-24s %14s\n", "Expected cash", money(p, *expected))
	}

	if s.Status == ledger.ShiftClosed {
		fmt.Fprintln(w, rule)
		if s.ClosingCashCounted != nil {
			fmt.Fprintf(w, "%-24s %14s\n", "Counted cash", money(p, *s.ClosingCashCounted))
		}
		if s.CashOverShort != nil {
			fmt.Fprintf(w, "%-24s %14s\n", "Over/short", money(p, *s.CashOverShort))
		}
		if s.CashForNextShift != nil {
			fmt.Fprintf(w, "%-24s %14s\n", "Next shift float", money(p, *s.CashForNextShift))
		}
		if s.CashToDeposit != nil {
			fmt.Fprintf(w, "%-24s %14s\n", "To deposit", money(p, *s.CashToDeposit))
		}
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Drawer activity")
	for _, a := range rep.Activities {
		fmt.Fprintf(w, "  #%-3d %s  %-12s %12s",
			a.Seq, a.Timestamp.Format(timeLayout), a.Type, money(p, a.Amount))
		if a.PaymentMethod != ledger.PayNone {
			fmt.Fprintf(w, "  %s", a.PaymentMethod)
		}
		if a.OrderID != "" {
			fmt.Fprintf(w, "  %s", a.OrderID)
		}
		if a.Description != "" {
			fmt.Fprintf(w, "  %s", a.Description)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, doubleRule)
}
