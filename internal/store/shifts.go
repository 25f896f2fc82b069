package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coppertill/till/internal/ledger"
)

const shiftColumns = `id, status, start_time, opening_float, end_time,
	closing_cash_counted, cash_for_next_shift, expected_cash,
	cash_over_short, cash_to_deposit, totals`

// InsertShift inserts a new shift row. The partial unique index on
// shifts(status) rejects a second OPEN row, so even a bug above this layer
// cannot produce two open shifts.
func (t *Tx) InsertShift(s *ledger.Shift) error {
	totals, err := marshalTotals(s.Totals)
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		string(s.Status),
		millis(s.StartTime),
		dec(s.OpeningFloat),
		millisPtr(s.EndTime),
		decPtr(s.ClosingCashCounted),
		decPtr(s.CashForNextShift),
		decPtr(s.ExpectedCash),
		decPtr(s.CashOverShort),
		decPtr(s.CashToDeposit),
		totals,
	)
	if err != nil {
		return fmt.Errorf("insert shift %s: %w", s.ID, err)
	}
	return nil
}

// UpdateShift rewrites an existing shift row.
func (t *Tx) UpdateShift(s *ledger.Shift) error {
	totals, err := marshalTotals(s.Totals)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}

	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE shifts SET
			status = ?, start_time = ?, opening_float = ?, end_time = ?,
			closing_cash_counted = ?, cash_for_next_shift = ?,
			expected_cash = ?, cash_over_short = ?, cash_to_deposit = ?,
			totals = ?
		WHERE id = ?
	`,
		string(s.Status),
		millis(s.StartTime),
		dec(s.OpeningFloat),
		millisPtr(s.EndTime),
		decPtr(s.ClosingCashCounted),
		decPtr(s.CashForNextShift),
		decPtr(s.ExpectedCash),
		decPtr(s.CashOverShort),
		decPtr(s.CashToDeposit),
		totals,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update shift %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update shift %s: %w", s.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update shift %s: no such shift", s.ID)
	}
	return nil
}

// CountShiftsForDay counts shifts whose ID carries the given day prefix,
// for enforcing the per-day shift cap inside the opening transaction.
func (t *Tx) CountShiftsForDay(date string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM shifts WHERE id LIKE ? ESCAPE '\'`,
		likePrefix(date+"-S"),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count shifts for %s: %w", date, err)
	}
	return n, nil
}

// AppendActivity appends one entry to the drawer log, allocating the next
// per-shift seq inside the transaction. Entries are never updated or
// deleted; this is the only write path for drawer_activities.
func (t *Tx) AppendActivity(a *ledger.CashDrawerActivity) error {
	var seq int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM drawer_activities WHERE shift_id = ?`,
		a.ShiftID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("allocate activity seq: %w", err)
	}
	a.Seq = seq

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO drawer_activities
			(id, shift_id, seq, ts, type, amount, payment_method, description, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.ShiftID,
		a.Seq,
		millis(a.Timestamp),
		string(a.Type),
		dec(a.Amount),
		string(a.PaymentMethod),
		a.Description,
		nullStr(a.OrderID),
	)
	if err != nil {
		return fmt.Errorf("append activity %s: %w", a.ID, err)
	}
	return nil
}

// Activities returns a shift's drawer log in insertion order, inside the
// transaction. Used by close-time reconciliation, which must read the log
// in the same transaction that freezes the derived figures.
func (t *Tx) Activities(shiftID string) ([]ledger.CashDrawerActivity, error) {
	rows, err := t.tx.QueryContext(t.ctx, activitiesQuery, shiftID)
	if err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	return scanActivities(rows)
}

// HasSaleActivity reports whether a SALE entry already exists for the
// given order, inside the transaction.
func (t *Tx) HasSaleActivity(orderID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT COUNT(*) FROM drawer_activities
		WHERE order_id = ? AND type = ?
	`, orderID, string(ledger.ActSale)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check sale activity for %s: %w", orderID, err)
	}
	return n > 0, nil
}

const activitiesQuery = `
	SELECT id, shift_id, seq, ts, type, amount, payment_method, description, order_id
	FROM drawer_activities
	WHERE shift_id = ?
	ORDER BY seq ASC`

// OpenShift returns the shift currently OPEN, or (nil, nil) if none is.
func (s *Store) OpenShift(ctx context.Context) (*ledger.Shift, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE status = ?`,
		string(ledger.ShiftOpen),
	)
	return scanShift(row)
}

// GetShift reads one shift. Returns (nil, nil) when it does not exist.
func (s *Store) GetShift(ctx context.Context, id string) (*ledger.Shift, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
	return scanShift(row)
}

// ShiftsForDay returns the day's shifts in start order.
func (s *Store) ShiftsForDay(ctx context.Context, date string) ([]ledger.Shift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE id LIKE ? ESCAPE '\'
		ORDER BY start_time ASC, id ASC
	`, likePrefix(date+"-S"))
	if err != nil {
		return nil, fmt.Errorf("select shifts for %s: %w", date, err)
	}
	defer rows.Close()

	var shifts []ledger.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shifts: %w", err)
	}
	return shifts, nil
}

// Activities returns a shift's drawer log in insertion order.
func (s *Store) Activities(ctx context.Context, shiftID string) ([]ledger.CashDrawerActivity, error) {
	rows, err := s.db.QueryContext(ctx, activitiesQuery, shiftID)
	if err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	return scanActivities(rows)
}

func scanShift(row rowScanner) (*ledger.Shift, error) {
	var (
		sh        ledger.Shift
		status    string
		startTime int64
		opening   string
		endTime   sql.NullInt64
		counted   sql.NullString
		nextShift sql.NullString
		expected  sql.NullString
		overShort sql.NullString
		toDeposit sql.NullString
		totals    sql.NullString
	)

	err := row.Scan(
		&sh.ID, &status, &startTime, &opening, &endTime, &counted,
		&nextShift, &expected, &overShort, &toDeposit, &totals,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan shift: %w", err)
	}

	sh.Status = ledger.ShiftStatus(status)
	sh.StartTime = fromMillis(startTime)
	sh.EndTime = fromMillisPtr(endTime)

	if sh.OpeningFloat, err = parseDec(opening); err != nil {
		return nil, err
	}
	if sh.ClosingCashCounted, err = parseDecPtr(counted); err != nil {
		return nil, err
	}
	if sh.CashForNextShift, err = parseDecPtr(nextShift); err != nil {
		return nil, err
	}
	if sh.ExpectedCash, err = parseDecPtr(expected); err != nil {
		return nil, err
	}
	if sh.CashOverShort, err = parseDecPtr(overShort); err != nil {
		return nil, err
	}
	if sh.CashToDeposit, err = parseDecPtr(toDeposit); err != nil {
		return nil, err
	}
	if sh.Totals, err = unmarshalTotals(totals); err != nil {
		return nil, err
	}
	return &sh, nil
}

func scanActivities(rows *sql.Rows) ([]ledger.CashDrawerActivity, error) {
	defer rows.Close()

	var acts []ledger.CashDrawerActivity
	for rows.Next() {
		var (
			a       ledger.CashDrawerActivity
			ts      int64
			typ     string
			amount  string
			method  string
			orderID sql.NullString
		)
		err := rows.Scan(&a.ID, &a.ShiftID, &a.Seq, &ts, &typ, &amount, &method, &a.Description, &orderID)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Timestamp = fromMillis(ts)
		a.Type = ledger.ActivityType(typ)
		a.PaymentMethod = ledger.PaymentMethod(method)
		a.OrderID = orderID.String
		if a.Amount, err = parseDec(amount); err != nil {
			return nil, err
		}
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return acts, nil
}
