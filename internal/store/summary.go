package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coppertill/till/internal/ledger"
)

// BumpDailySummary adds amount and one transaction to the day's rollup
// row, creating it if absent. Amounts are exact decimal TEXT, so the
// addition happens in Go; the enclosing transaction makes the
// read-then-write atomic.
func (t *Tx) BumpDailySummary(date string, amount decimal.Decimal) error {
	var (
		totalStr string
		count    int64
	)
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT total_sales, transaction_count FROM daily_summary WHERE date = ?`,
		date,
	).Scan(&totalStr, &count)

	total := decimal.Zero
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first transaction of the day
	case err != nil:
		return fmt.Errorf("bump daily summary %s: %w", date, err)
	default:
		if total, err = parseDec(totalStr); err != nil {
			return err
		}
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO daily_summary (date, total_sales, transaction_count)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_sales = excluded.total_sales,
			transaction_count = excluded.transaction_count
	`, date, dec(total.Add(amount)), count+1)
	if err != nil {
		return fmt.Errorf("bump daily summary %s: %w", date, err)
	}
	return nil
}

// PutDailySummary replaces the day's rollup row. Used by the rebuild
// operation that recomputes the materialized view from the order table.
func (t *Tx) PutDailySummary(sum *ledger.DailySummary) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO daily_summary (date, total_sales, transaction_count)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_sales = excluded.total_sales,
			transaction_count = excluded.transaction_count
	`, sum.Date, dec(sum.TotalSales), sum.TransactionCount)
	if err != nil {
		return fmt.Errorf("put daily summary %s: %w", sum.Date, err)
	}
	return nil
}

// DailySummary reads the day's rollup row. Returns (nil, nil) when no
// orders have been recorded for that date.
func (s *Store) DailySummary(ctx context.Context, date string) (*ledger.DailySummary, error) {
	var (
		sum      ledger.DailySummary
		totalStr string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT date, total_sales, transaction_count FROM daily_summary WHERE date = ?`,
		date,
	).Scan(&sum.Date, &totalStr, &sum.TransactionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily summary %s: %w", date, err)
	}
	if sum.TotalSales, err = parseDec(totalStr); err != nil {
		return nil, err
	}
	return &sum, nil
}
