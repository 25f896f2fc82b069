package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coppertill/till/internal/ledger"
)

// createTestStore creates a fresh on-disk store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "till.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustDec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return d
}

// createTestOrder builds a minimal cooking/pending cash order.
func createTestOrder(t *testing.T, id string, total string, ts time.Time) *ledger.Order {
	t.Helper()
	tot := mustDec(t, total)
	return &ledger.Order{
		ID:            id,
		Items:         []ledger.OrderItem{{Name: "Americano", Price: tot, Quantity: 1}},
		Subtotal:      tot,
		Total:         tot,
		Timestamp:     ts,
		PaymentMethod: ledger.PayCash,
		Status:        ledger.StatusCooking,
		SyncStatus:    ledger.SyncPending,
	}
}

// createTestShift inserts an OPEN shift and returns it.
func createTestShift(t *testing.T, s *Store, id string, openingFloat string) *ledger.Shift {
	t.Helper()
	sh := &ledger.Shift{
		ID:           id,
		Status:       ledger.ShiftOpen,
		StartTime:    time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC),
		OpeningFloat: mustDec(t, openingFloat),
	}
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertShift(sh)
	})
	if err != nil {
		t.Fatalf("insert shift failed: %v", err)
	}
	return sh
}

// insertTestOrder writes an order through a transaction.
func insertTestOrder(t *testing.T, s *Store, o *ledger.Order) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertOrder(o)
	})
	if err != nil {
		t.Fatalf("insert order %s failed: %v", o.ID, err)
	}
}
