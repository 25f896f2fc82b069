package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/store"
)

const testDate = "2026-08-29"

func newTestReporter(t *testing.T, opts ...Option) (*Reporter, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "till.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return New(st, append(base, opts...)...), st
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 29, hour, min, 0, 0, time.UTC)
}

func testOrder(id string, total decimal.Decimal, method ledger.PaymentMethod, ts time.Time) *ledger.Order {
	return &ledger.Order{
		ID:            id,
		Items:         []ledger.OrderItem{{Name: "Set A", Price: total, Quantity: 1}},
		Subtotal:      total,
		Total:         total,
		Timestamp:     ts,
		PaymentMethod: method,
		Status:        ledger.StatusCompleted,
		SyncStatus:    ledger.SyncSynced,
	}
}

// seedDay writes one day's worth of ledger state: a completed cash sale, a
// QR sale that was completed and then cancelled (with its reversal), one
// still-cooking order, a materialized summary row and a closed shift.
func seedDay(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()

	prep := int64(240)
	cancelledAt := at(12, 30)

	cash := testOrder(testDate+"-0001", dec(t, "350"), ledger.PayCash, at(9, 0))
	cash.PrepSeconds = &prep

	qr := testOrder(testDate+"-0002", dec(t, "220"), ledger.PayQR, at(10, 0))
	qr.PrepSeconds = &prep
	qr.Status = ledger.StatusCancelled
	qr.CancelledAt = &cancelledAt
	rev := qr.Reversal(cancelledAt)

	cooking := testOrder(testDate+"-0003", dec(t, "80"), ledger.PayCash, at(13, 0))
	cooking.Status = ledger.StatusCooking

	overShort := dec(t, "-5")
	deposit := dec(t, "565")
	counted := dec(t, "665")
	endTime := at(17, 0)
	shift := &ledger.Shift{
		ID:                 testDate + "-S1",
		Status:             ledger.ShiftClosed,
		StartTime:          at(8, 0),
		OpeningFloat:       dec(t, "100"),
		EndTime:            &endTime,
		ClosingCashCounted: &counted,
		CashOverShort:      &overShort,
		CashToDeposit:      &deposit,
	}

	err := st.WithTx(ctx, func(tx *store.Tx) error {
		for _, o := range []*ledger.Order{cash, qr, &rev, cooking} {
			if err := tx.InsertOrder(o); err != nil {
				return err
			}
		}
		if err := tx.InsertShift(shift); err != nil {
			return err
		}
		return tx.PutDailySummary(&ledger.DailySummary{
			Date:             testDate,
			TotalSales:       dec(t, "570"),
			TransactionCount: 3,
		})
	})
	require.NoError(t, err)
}

func TestBuildDay_GrossFromSummaryBreakdownFromOrders(t *testing.T) {
	r, st := newTestReporter(t)
	seedDay(t, st)

	rep, err := r.BuildDay(context.Background(), testDate)
	require.NoError(t, err)

	assert.True(t, rep.GrossSales.Equal(dec(t, "570")), "gross comes from the summary row")
	assert.Equal(t, int64(3), rep.TransactionCount)
	assert.True(t, rep.Refunds.Equal(dec(t, "220")), "reversal magnitude")
	assert.True(t, rep.CashSales.Equal(dec(t, "350")))
	assert.True(t, rep.QRSales.Equal(dec(t, "220")), "cancelled-after-completion still counts")
	assert.Equal(t, 1, rep.Cancelled)

	// Default reporting keeps gross: cancellations never reduce it.
	assert.True(t, rep.NetSales.Equal(dec(t, "570")))

	require.Len(t, rep.Shifts, 1)
	assert.Equal(t, testDate+"-S1", rep.Shifts[0].ID)
	require.NotNil(t, rep.Shifts[0].CashOverShort)
	assert.True(t, rep.Shifts[0].CashOverShort.Equal(dec(t, "-5")))
}

func TestBuildDay_NetCancellationsDeductsRefunds(t *testing.T) {
	r, st := newTestReporter(t, WithNetCancellations(true))
	seedDay(t, st)

	rep, err := r.BuildDay(context.Background(), testDate)
	require.NoError(t, err)
	assert.True(t, rep.NetSales.Equal(dec(t, "350")), "570 gross - 220 refunds")
	assert.True(t, rep.GrossSales.Equal(dec(t, "570")), "gross untouched")
}

func TestBuildDay_EmptyDateYieldsZeroReport(t *testing.T) {
	r, _ := newTestReporter(t)

	rep, err := r.BuildDay(context.Background(), "2026-01-01")
	require.NoError(t, err)
	assert.True(t, rep.GrossSales.IsZero())
	assert.Zero(t, rep.TransactionCount)
	assert.Empty(t, rep.Shifts)
}

func TestBuildShift_OpenShiftCarriesLiveFigures(t *testing.T) {
	r, st := newTestReporter(t)
	ctx := context.Background()

	shift := &ledger.Shift{
		ID:           testDate + "-S1",
		Status:       ledger.ShiftOpen,
		StartTime:    at(8, 0),
		OpeningFloat: dec(t, "100"),
	}
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.InsertShift(shift); err != nil {
			return err
		}
		acts := []*ledger.CashDrawerActivity{
			{ID: "a1", ShiftID: shift.ID, Timestamp: at(8, 0), Type: ledger.ActShiftStart, Amount: dec(t, "100"), PaymentMethod: ledger.PayNone, Description: "opening float"},
			{ID: "a2", ShiftID: shift.ID, Timestamp: at(9, 0), Type: ledger.ActSale, Amount: dec(t, "350"), PaymentMethod: ledger.PayCash, OrderID: testDate + "-0001"},
			{ID: "a3", ShiftID: shift.ID, Timestamp: at(10, 0), Type: ledger.ActPaidOut, Amount: dec(t, "30"), PaymentMethod: ledger.PayNone, Description: "supplies"},
		}
		for _, a := range acts {
			if err := tx.AppendActivity(a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	rep, err := r.BuildShift(ctx, shift.ID)
	require.NoError(t, err)
	require.Len(t, rep.Activities, 3)
	require.NotNil(t, rep.LiveTotals)
	assert.True(t, rep.LiveTotals.SalesCash.Equal(dec(t, "350")))
	require.NotNil(t, rep.LiveExpectedCash)
	assert.True(t, rep.LiveExpectedCash.Equal(dec(t, "420")), "100 + 350 - 30")
}

func TestBuildShift_UnknownShiftIsValidationError(t *testing.T) {
	r, _ := newTestReporter(t)

	_, err := r.BuildShift(context.Background(), "2026-01-01-S9")
	require.Error(t, err)
	assert.True(t, ledger.IsValidation(err), "got %v", err)
}

func TestRecomputeDay_RebuildsGrossFromOrders(t *testing.T) {
	r, st := newTestReporter(t)
	ctx := context.Background()
	seedDay(t, st)

	// Corrupt the stored summary, then rebuild it.
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		return tx.PutDailySummary(&ledger.DailySummary{
			Date:             testDate,
			TotalSales:       dec(t, "9999"),
			TransactionCount: 99,
		})
	})
	require.NoError(t, err)

	sum, err := r.RecomputeDay(ctx, testDate)
	require.NoError(t, err)

	// 350 cash + 220 cancelled-after-completion; the reversal and the
	// still-cooking order contribute nothing.
	assert.True(t, sum.TotalSales.Equal(dec(t, "570")), "got %s", sum.TotalSales)
	assert.Equal(t, int64(2), sum.TransactionCount)

	stored, err := st.DailySummary(ctx, testDate)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.TotalSales.Equal(dec(t, "570")))
	assert.Equal(t, int64(2), stored.TransactionCount)
}

func TestRenderDay_Golden(t *testing.T) {
	overShort := decimal.RequireFromString("-5")
	rep := &DayReport{
		Date:             testDate,
		GrossSales:       decimal.RequireFromString("570"),
		TransactionCount: 3,
		Refunds:          decimal.RequireFromString("220"),
		NetSales:         decimal.RequireFromString("350"),
		CashSales:        decimal.RequireFromString("350"),
		QRSales:          decimal.RequireFromString("220"),
		Cancelled:        1,
		Shifts: []ShiftLine{{
			ID:            testDate + "-S1",
			Status:        ledger.ShiftClosed,
			OpeningFloat:  decimal.RequireFromString("100"),
			CashOverShort: &overShort,
		}},
	}

	var buf bytes.Buffer
	RenderDay(&buf, rep)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "day_report", buf.Bytes())
}

func TestRenderShift_Golden(t *testing.T) {
	d := decimal.RequireFromString
	endTime := at(17, 0)
	counted := d("665")
	overShort := d("-5")
	nextFloat := d("100")
	deposit := d("565")
	expected := d("670")

	rep := &ShiftReport{
		Shift: ledger.Shift{
			ID:                 testDate + "-S1",
			Status:             ledger.ShiftClosed,
			StartTime:          at(8, 0),
			EndTime:            &endTime,
			OpeningFloat:       d("100"),
			ClosingCashCounted: &counted,
			CashForNextShift:   &nextFloat,
			ExpectedCash:       &expected,
			CashOverShort:      &overShort,
			CashToDeposit:      &deposit,
			Totals: &ledger.ShiftTotals{
				SalesCash:   d("500"),
				SalesQR:     d("220"),
				RefundsCash: d("50"),
				RefundsQR:   d("0"),
				PaidIn:      d("170"),
				PaidOut:     d("50"),
			},
		},
		Activities: []ledger.CashDrawerActivity{
			{Seq: 1, Timestamp: at(8, 0), Type: ledger.ActShiftStart, Amount: d("100"), PaymentMethod: ledger.PayNone, Description: "opening float"},
			{Seq: 2, Timestamp: time.Date(2026, 8, 29, 9, 15, 0, 0, time.UTC), Type: ledger.ActSale, Amount: d("500"), PaymentMethod: ledger.PayCash, OrderID: testDate + "-0001"},
			{Seq: 3, Timestamp: at(10, 0), Type: ledger.ActPaidIn, Amount: d("170"), PaymentMethod: ledger.PayNone, Description: "change run"},
			{Seq: 4, Timestamp: time.Date(2026, 8, 29, 11, 30, 0, 0, time.UTC), Type: ledger.ActSale, Amount: d("220"), PaymentMethod: ledger.PayQR, OrderID: testDate + "-0002"},
			{Seq: 5, Timestamp: at(13, 0), Type: ledger.ActPaidOut, Amount: d("50"), PaymentMethod: ledger.PayNone, Description: "supplies"},
			{Seq: 6, Timestamp: time.Date(2026, 8, 29, 14, 45, 0, 0, time.UTC), Type: ledger.ActRefund, Amount: d("50"), PaymentMethod: ledger.PayCash, OrderID: testDate + "-0001"},
			{Seq: 7, Timestamp: at(17, 0), Type: ledger.ActShiftEnd, Amount: d("665"), PaymentMethod: ledger.PayNone, Description: "closing count"},
		},
	}

	var buf bytes.Buffer
	RenderShift(&buf, rep)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "shift_report", buf.Bytes())
}
