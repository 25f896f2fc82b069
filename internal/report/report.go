// Package report derives read-only views from the ledger: the per-day
// sales report, the shift Z-report, and the daily summary rebuild.
//
// Reports never write through to orders, shifts or activities. The only
// mutation in this package is RecomputeDay, which replaces one derived
// daily_summaries row from the order table.
package report

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/store"
)

// Reporter assembles reports from the persistence store.
type Reporter struct {
	store *store.Store
	log   *slog.Logger

	// netCancellations controls whether DayReport.NetSales deducts
	// reversal totals. Gross figures are unaffected either way.
	netCancellations bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithNetCancellations makes day reports show net sales with reversal
// totals deducted.
func WithNetCancellations(enabled bool) Option {
	return func(r *Reporter) { r.netCancellations = enabled }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) { r.log = l }
}

// New creates a Reporter over the given store.
func New(st *store.Store, opts ...Option) *Reporter {
	r := &Reporter{store: st, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ShiftLine is one shift's row in a day report.
type ShiftLine struct {
	ID            string             `json:"id"`
	Status        ledger.ShiftStatus `json:"status"`
	OpeningFloat  decimal.Decimal    `json:"openingFloatAmount"`
	CashOverShort *decimal.Decimal   `json:"cashOverShort,omitempty"`
	CashToDeposit *decimal.Decimal   `json:"cashToDeposit,omitempty"`
}

// DayReport is the per-calendar-day sales view.
//
// GrossSales and TransactionCount come from the materialized daily
// summary: they count every completed sale and are never reduced by later
// cancellations. The remaining figures are recomputed from the order
// table each time the report is built.
type DayReport struct {
	Date             string          `json:"date"`
	GrossSales       decimal.Decimal `json:"grossSales"`
	TransactionCount int64           `json:"transactionCount"`

	Refunds   decimal.Decimal `json:"refunds"`
	NetSales  decimal.Decimal `json:"netSales"`
	CashSales decimal.Decimal `json:"cashSales"`
	QRSales   decimal.Decimal `json:"qrSales"`
	Cancelled int             `json:"cancelledOrders"`

	Shifts []ShiftLine `json:"shifts,omitempty"`
}

// BuildDay assembles the report for one ISO date (YYYY-MM-DD).
// A date with no summary row and no orders yields a zeroed report, not an
// error.
func (r *Reporter) BuildDay(ctx context.Context, date string) (*DayReport, error) {
	const op = "report.day"

	rep := &DayReport{Date: date}

	sum, err := r.store.DailySummary(ctx, date)
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}
	if sum != nil {
		rep.GrossSales = sum.TotalSales
		rep.TransactionCount = sum.TransactionCount
	}

	orders, err := r.store.OrdersForDay(ctx, date)
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}
	for _, o := range orders {
		if o.IsReversal() {
			// Reversal totals are negative; accumulate the magnitude.
			rep.Refunds = rep.Refunds.Add(o.Total.Neg())
			continue
		}
		if o.Status == ledger.StatusCancelled {
			rep.Cancelled++
		}
		if !wasCompleted(o) {
			continue
		}
		switch o.PaymentMethod {
		case ledger.PayCash:
			rep.CashSales = rep.CashSales.Add(o.Total)
		case ledger.PayQR:
			rep.QRSales = rep.QRSales.Add(o.Total)
		}
	}

	rep.NetSales = rep.GrossSales
	if r.netCancellations {
		rep.NetSales = rep.GrossSales.Sub(rep.Refunds)
	}

	shifts, err := r.store.ShiftsForDay(ctx, date)
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}
	for _, s := range shifts {
		rep.Shifts = append(rep.Shifts, ShiftLine{
			ID:            s.ID,
			Status:        s.Status,
			OpeningFloat:  s.OpeningFloat,
			CashOverShort: s.CashOverShort,
			CashToDeposit: s.CashToDeposit,
		})
	}

	return rep, nil
}

// ShiftReport is the Z-report view of one shift: the shift record with
// its full activity log. For a closed shift the reconciliation figures
// are the ones frozen at close; an open shift reports live drawer totals
// instead.
type ShiftReport struct {
	Shift      ledger.Shift                `json:"shift"`
	Activities []ledger.CashDrawerActivity `json:"activities"`

	// Live figures, only meaningful while the shift is still open.
	LiveTotals       *ledger.ShiftTotals `json:"liveTotals,omitempty"`
	LiveExpectedCash *decimal.Decimal    `json:"liveExpectedCash,omitempty"`
}

// BuildShift assembles the Z-report for one shift ID.
func (r *Reporter) BuildShift(ctx context.Context, shiftID string) (*ShiftReport, error) {
	const op = "report.shift"

	s, err := r.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}
	if s == nil {
		return nil, r.fail(ledger.NewValidation(op, "shift %q not found", shiftID))
	}

	acts, err := r.store.Activities(ctx, shiftID)
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}

	rep := &ShiftReport{Shift: *s, Activities: acts}
	if s.Status == ledger.ShiftOpen {
		totals := ledger.DrawerTotals(acts)
		expected := ledger.ExpectedCash(s.OpeningFloat, totals)
		rep.LiveTotals = &totals
		rep.LiveExpectedCash = &expected
	}
	return rep, nil
}

// RecomputeDay rebuilds one day's summary row from the order table and
// replaces the stored row. Gross semantics are preserved: a sale counts
// once it completed, and a later cancellation does not remove it.
func (r *Reporter) RecomputeDay(ctx context.Context, date string) (*ledger.DailySummary, error) {
	const op = "report.rebuild"

	orders, err := r.store.OrdersForDay(ctx, date)
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}

	sum := &ledger.DailySummary{Date: date}
	for _, o := range orders {
		if o.IsReversal() || !wasCompleted(o) {
			continue
		}
		sum.TotalSales = sum.TotalSales.Add(o.Total)
		sum.TransactionCount++
	}

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.PutDailySummary(sum)
	})
	if err != nil {
		return nil, r.fail(ledger.WrapStorage(op, err))
	}

	r.log.Info("daily summary rebuilt",
		"date", date,
		"total_sales", sum.TotalSales,
		"transactions", sum.TransactionCount)
	return sum, nil
}

// wasCompleted reports whether the sale reached completion at some point.
// A cancelled order still counts if it completed before cancellation;
// PrepSeconds is only ever set at completion time.
func wasCompleted(o ledger.Order) bool {
	return o.Status == ledger.StatusCompleted ||
		(o.Status == ledger.StatusCancelled && o.PrepSeconds != nil)
}

func (r *Reporter) fail(err error) error {
	r.log.Error("report operation failed", "error", err)
	return err
}
