package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coppertill/till/internal/ledger"
)

const orderColumns = `id, items, subtotal, discount_value, service_charge_value,
	tax, total, ts, payment_method, cash_received, status, sync_status,
	reversal_of, cancelled_at, ready_at, prep_seconds`

// InsertOrder inserts a new order row. Fails if the ID already exists -
// order IDs are allocated inside the same transaction, so a duplicate key
// here means a real bug, not a race to paper over.
func (t *Tx) InsertOrder(o *ledger.Order) error {
	items, err := marshalItems(o.Items)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID,
		items,
		dec(o.Subtotal),
		dec(o.DiscountValue),
		dec(o.ServiceChargeValue),
		dec(o.Tax),
		dec(o.Total),
		millis(o.Timestamp),
		string(o.PaymentMethod),
		decPtr(o.CashReceived),
		string(o.Status),
		string(o.SyncStatus),
		nullStr(o.ReversalOf),
		millisPtr(o.CancelledAt),
		millisPtr(o.ReadyAt),
		nullInt64Ptr(o.PrepSeconds),
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

// UpdateOrder rewrites an existing order row (upsert semantics are not
// wanted here: updating a missing order is an error).
func (t *Tx) UpdateOrder(o *ledger.Order) error {
	items, err := marshalItems(o.Items)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE orders SET
			items = ?, subtotal = ?, discount_value = ?,
			service_charge_value = ?, tax = ?, total = ?, ts = ?,
			payment_method = ?, cash_received = ?, status = ?,
			sync_status = ?, reversal_of = ?, cancelled_at = ?,
			ready_at = ?, prep_seconds = ?
		WHERE id = ?
	`,
		items,
		dec(o.Subtotal),
		dec(o.DiscountValue),
		dec(o.ServiceChargeValue),
		dec(o.Tax),
		dec(o.Total),
		millis(o.Timestamp),
		string(o.PaymentMethod),
		decPtr(o.CashReceived),
		string(o.Status),
		string(o.SyncStatus),
		nullStr(o.ReversalOf),
		millisPtr(o.CancelledAt),
		millisPtr(o.ReadyAt),
		nullInt64Ptr(o.PrepSeconds),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update order %s: no such order", o.ID)
	}
	return nil
}

// GetOrder reads one order inside the transaction.
// Returns (nil, nil) when the order does not exist.
func (t *Tx) GetOrder(id string) (*ledger.Order, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// CountOrdersForDay counts orders whose ID carries the given day prefix.
// Reversal IDs start with "R-" and never match. Must be called inside the
// same transaction that inserts the allocated ID.
func (t *Tx) CountOrdersForDay(dayPrefix string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM orders WHERE id LIKE ? ESCAPE '\'`,
		likePrefix(dayPrefix),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders for %s: %w", dayPrefix, err)
	}
	return n, nil
}

// SetSyncStatus bulk-updates the sync status of the given orders.
// All rows move together or none do (the enclosing transaction is
// all-or-nothing), matching the batch delivery semantics.
func (t *Tx) SetSyncStatus(ids []string, status ledger.SyncStatus) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(status))
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE orders SET sync_status = ? WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("set sync status %s: %w", status, err)
	}
	return nil
}

// GetOrder reads one order. Returns (nil, nil) when it does not exist.
func (s *Store) GetOrder(ctx context.Context, id string) (*ledger.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// UnsyncedOrders returns up to limit orders still owed to the remote
// backend (sync status pending or failed), oldest first. The order is
// deterministic: (ts, id).
func (s *Store) UnsyncedOrders(ctx context.Context, limit int) ([]ledger.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE sync_status IN (?, ?)
		ORDER BY ts ASC, id ASC
		LIMIT ?
	`, string(ledger.SyncPending), string(ledger.SyncFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("select unsynced orders: %w", err)
	}
	return scanOrders(rows)
}

// OrdersBetween returns orders with from <= ts < to, ordered by (ts, id).
func (s *Store) OrdersBetween(ctx context.Context, from, to time.Time) ([]ledger.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC
	`, millis(from), millis(to))
	if err != nil {
		return nil, fmt.Errorf("select orders between: %w", err)
	}
	return scanOrders(rows)
}

// OrdersByStatusBetween returns orders in the given status with
// from <= ts < to, using the compound (status, ts) index.
func (s *Store) OrdersByStatusBetween(ctx context.Context, status ledger.OrderStatus, from, to time.Time) ([]ledger.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC
	`, string(status), millis(from), millis(to))
	if err != nil {
		return nil, fmt.Errorf("select orders by status: %w", err)
	}
	return scanOrders(rows)
}

// OrdersForDay returns every order (originals and reversals) whose ID is
// scoped to the given ISO date, ordered by (ts, id). Reversals keep their
// original's day prefix behind the "R-" marker, so a day's reversals are
// attributed to the day of the sale they negate.
func (s *Store) OrdersForDay(ctx context.Context, date string) ([]ledger.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\'
		ORDER BY ts ASC, id ASC
	`, likePrefix(date+"-"), likePrefix("R-"+date+"-"))
	if err != nil {
		return nil, fmt.Errorf("select orders for %s: %w", date, err)
	}
	return scanOrders(rows)
}

// likePrefix escapes LIKE metacharacters in prefix and appends the
// wildcard, for use with ESCAPE '\'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*ledger.Order, error) {
	var (
		o            ledger.Order
		items        string
		subtotal     string
		discount     string
		service      string
		tax          string
		total        string
		ts           int64
		method       string
		cashReceived sql.NullString
		status       string
		syncStatus   string
		reversalOf   sql.NullString
		cancelledAt  sql.NullInt64
		readyAt      sql.NullInt64
		prepSeconds  sql.NullInt64
	)

	err := row.Scan(
		&o.ID, &items, &subtotal, &discount, &service, &tax, &total, &ts,
		&method, &cashReceived, &status, &syncStatus, &reversalOf,
		&cancelledAt, &readyAt, &prepSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if o.Items, err = unmarshalItems(items); err != nil {
		return nil, err
	}
	if o.Subtotal, err = parseDec(subtotal); err != nil {
		return nil, err
	}
	if o.DiscountValue, err = parseDec(discount); err != nil {
		return nil, err
	}
	if o.ServiceChargeValue, err = parseDec(service); err != nil {
		return nil, err
	}
	if o.Tax, err = parseDec(tax); err != nil {
		return nil, err
	}
	if o.Total, err = parseDec(total); err != nil {
		return nil, err
	}
	if o.CashReceived, err = parseDecPtr(cashReceived); err != nil {
		return nil, err
	}

	o.Timestamp = fromMillis(ts)
	o.PaymentMethod = ledger.PaymentMethod(method)
	o.Status = ledger.OrderStatus(status)
	o.SyncStatus = ledger.SyncStatus(syncStatus)
	o.ReversalOf = reversalOf.String
	o.CancelledAt = fromMillisPtr(cancelledAt)
	o.ReadyAt = fromMillisPtr(readyAt)
	o.PrepSeconds = int64Ptr(prepSeconds)
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]ledger.Order, error) {
	defer rows.Close()

	var orders []ledger.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
