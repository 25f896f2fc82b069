// Package shift owns the shift state machine and the current-shift pointer.
//
// Exactly one shift may be OPEN at a time. The Manager holds the open
// shift as an explicit mutex-guarded field (never package-level state) and
// is the only component that moves shifts between NO_SHIFT, OPEN and
// CLOSED. CLOSED is terminal for a shift ID; the next shift gets a new ID.
package shift

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/store"
)

// DefaultMaxPerDay caps how many shifts may be opened per calendar day.
const DefaultMaxPerDay = 3

// Manager is the shift state machine.
//
// Thread-safety model:
//   - state transitions (open, close, drawer appends) are serialized by mu
//   - the current-shift pointer is an atomic so it can be read without mu
//   - storage reads-then-writes happen inside store.WithTx
//
// Transitions hold mu across their store transaction, and the store has a
// single connection, so nothing that already sits inside a transaction may
// take mu. AppendSaleOrRefund runs inside the order ledger's transactions
// and therefore reads the pointer atomically instead of locking.
type Manager struct {
	store     *store.Store
	clock     ledger.Clock
	ids       ledger.IDGenerator
	log       *slog.Logger
	maxPerDay int
	notify    func()

	mu      sync.Mutex
	current atomic.Pointer[ledger.Shift] // nil when no shift is open
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock (tests).
func WithClock(c ledger.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIDGenerator overrides the activity ID generator (tests).
func WithIDGenerator(g ledger.IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithMaxPerDay overrides the per-day shift cap.
func WithMaxPerDay(n int) Option {
	return func(m *Manager) { m.maxPerDay = n }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a Manager over the given store.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		clock:     ledger.SystemClock{},
		ids:       ledger.UUIDv7Generator{},
		log:       slog.Default(),
		maxPerDay: DefaultMaxPerDay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetNotifier installs the callback fired after drawer money movements
// that should prompt a sync attempt. The callback must not block.
func (m *Manager) SetNotifier(fn func()) { m.notify = fn }

// Resume reloads the OPEN shift from the store, if any. Called once at
// startup so a terminal restarted mid-shift picks up where it left off.
func (m *Manager) Resume(ctx context.Context) error {
	sh, err := m.store.OpenShift(ctx)
	if err != nil {
		return m.fail(ledger.WrapStorage("shift.resume", err))
	}

	m.mu.Lock()
	m.current.Store(sh)
	m.mu.Unlock()

	if sh != nil {
		m.log.Info("resumed open shift", "shift_id", sh.ID)
	}
	return nil
}

// Current returns the open shift, or nil if none is open.
func (m *Manager) Current() *ledger.Shift {
	return m.current.Load()
}

// CurrentID returns the open shift's ID, or "".
func (m *Manager) CurrentID() string {
	if sh := m.Current(); sh != nil {
		return sh.ID
	}
	return ""
}

// StartShift opens a new shift with the given opening float.
//
// Fails with INVARIANT_VIOLATION if a shift is already open and with
// VALIDATION if the day's shift cap is reached or the float is negative.
// The cap check, the shift insert and the SHIFT_START activity happen in
// one transaction.
func (m *Manager) StartShift(ctx context.Context, openingFloat decimal.Decimal) (*ledger.Shift, error) {
	const op = "shift.start"

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur := m.current.Load(); cur != nil {
		return nil, m.fail(ledger.NewInvariant(op, "shift %s is already open", cur.ID))
	}
	if openingFloat.IsNegative() {
		return nil, m.fail(ledger.NewValidation(op, "opening float must not be negative"))
	}

	now := m.clock.Now()
	date := ledger.DateKey(now)

	var sh *ledger.Shift
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		n, err := tx.CountShiftsForDay(date)
		if err != nil {
			return err
		}
		if n >= m.maxPerDay {
			return ledger.NewValidation(op, "shift cap reached for %s (%d/%d)", date, n, m.maxPerDay)
		}

		sh = &ledger.Shift{
			ID:           shiftID(date, n+1),
			Status:       ledger.ShiftOpen,
			StartTime:    now,
			OpeningFloat: openingFloat,
		}
		if err := tx.InsertShift(sh); err != nil {
			return err
		}

		return tx.AppendActivity(&ledger.CashDrawerActivity{
			ID:            m.ids.NewID(),
			ShiftID:       sh.ID,
			Timestamp:     now,
			Type:          ledger.ActShiftStart,
			Amount:        openingFloat,
			PaymentMethod: ledger.PayNone,
			Description:   "shift opened",
		})
	})
	if err != nil {
		if ledger.CodeOf(err) != "" {
			return nil, m.fail(err)
		}
		return nil, m.fail(ledger.WrapStorage(op, err))
	}

	m.current.Store(sh)
	m.log.Info("shift opened", "shift_id", sh.ID, "opening_float", openingFloat.String())
	return sh, nil
}

// EndShift closes the open shift. The counted drawer amount and the float
// kept for the next shift are supplied by the operator; expected cash,
// over/short, deposit and per-method totals are derived from the activity
// log and frozen into the shift row. Reading the log and writing the
// closed row happen in one transaction.
func (m *Manager) EndShift(ctx context.Context, counted, nextFloat decimal.Decimal) (*ledger.Shift, error) {
	const op = "shift.end"

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Load()
	if cur == nil {
		return nil, m.fail(ledger.NewInvariant(op, "no shift is open"))
	}
	if counted.IsNegative() || nextFloat.IsNegative() {
		return nil, m.fail(ledger.NewValidation(op, "counted and next-shift amounts must not be negative"))
	}

	now := m.clock.Now()
	var closed ledger.Shift
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.AppendActivity(&ledger.CashDrawerActivity{
			ID:            m.ids.NewID(),
			ShiftID:       cur.ID,
			Timestamp:     now,
			Type:          ledger.ActShiftEnd,
			Amount:        counted,
			PaymentMethod: ledger.PayNone,
			Description:   "shift closed",
		}); err != nil {
			return err
		}

		acts, err := tx.Activities(cur.ID)
		if err != nil {
			return err
		}

		closed = ledger.Reconcile(*cur, acts, counted, nextFloat)
		closed.EndTime = &now
		return tx.UpdateShift(&closed)
	})
	if err != nil {
		return nil, m.fail(ledger.WrapStorage(op, err))
	}

	m.current.Store(nil)
	m.log.Info("shift closed",
		"shift_id", closed.ID,
		"expected_cash", closed.ExpectedCash.String(),
		"over_short", closed.CashOverShort.String(),
		"to_deposit", closed.CashToDeposit.String(),
	)
	return &closed, nil
}

// PaidInOut records money moved in or out of the drawer outside a sale.
// typ must be PAID_IN or PAID_OUT and amount positive. Rejected with
// INVARIANT_VIOLATION when no shift is open: drawer money movements with
// no shift to attribute them to would be unauditable.
func (m *Manager) PaidInOut(ctx context.Context, typ ledger.ActivityType, amount decimal.Decimal, description string) (*ledger.CashDrawerActivity, error) {
	const op = "shift.paid_in_out"

	if typ != ledger.ActPaidIn && typ != ledger.ActPaidOut {
		return nil, m.fail(ledger.NewValidation(op, "activity type must be PAID_IN or PAID_OUT, got %s", typ))
	}
	if !amount.IsPositive() {
		return nil, m.fail(ledger.NewValidation(op, "amount must be positive"))
	}

	a, err := m.appendToOpenShift(ctx, op, typ, amount, ledger.PayCash, description, "")
	if err != nil {
		return nil, err
	}
	m.nudgeSync()
	return a, nil
}

// ManualOpen records a drawer opened without a monetary transaction.
// Amount is always zero; the activity exists purely for the audit trail.
func (m *Manager) ManualOpen(ctx context.Context, description string) (*ledger.CashDrawerActivity, error) {
	return m.appendToOpenShift(ctx, "shift.manual_open", ledger.ActManualOpen, decimal.Zero, ledger.PayNone, description, "")
}

// AppendSaleOrRefund is the order ledger's hook for writing SALE and
// REFUND activities inside its own transactions. It only supplies the
// activity value; the caller owns the transaction. The shift pointer is
// read atomically: taking mu here while holding the store's connection
// would deadlock against a concurrent transition.
func (m *Manager) AppendSaleOrRefund(tx *store.Tx, typ ledger.ActivityType, amount decimal.Decimal, method ledger.PaymentMethod, description, orderID string) error {
	sh := m.current.Load()
	if sh == nil {
		return ledger.NewValidation("shift.append", "no shift is open")
	}
	return tx.AppendActivity(&ledger.CashDrawerActivity{
		ID:            m.ids.NewID(),
		ShiftID:       sh.ID,
		Timestamp:     m.clock.Now(),
		Type:          typ,
		Amount:        amount,
		PaymentMethod: method,
		Description:   description,
		OrderID:       orderID,
	})
}

func (m *Manager) appendToOpenShift(ctx context.Context, op string, typ ledger.ActivityType, amount decimal.Decimal, method ledger.PaymentMethod, description, orderID string) (*ledger.CashDrawerActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Load()
	if cur == nil {
		return nil, m.fail(ledger.NewInvariant(op, "no shift is open"))
	}

	a := &ledger.CashDrawerActivity{
		ID:            m.ids.NewID(),
		ShiftID:       cur.ID,
		Timestamp:     m.clock.Now(),
		Type:          typ,
		Amount:        amount,
		PaymentMethod: method,
		Description:   description,
		OrderID:       orderID,
	}
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.AppendActivity(a)
	})
	if err != nil {
		return nil, m.fail(ledger.WrapStorage(op, err))
	}

	m.log.Info("drawer activity recorded",
		"shift_id", a.ShiftID, "type", string(typ), "amount", amount.String())
	return a, nil
}

func (m *Manager) nudgeSync() {
	if m.notify != nil {
		m.notify()
	}
}

// fail logs an error to the audit trail before surfacing it.
func (m *Manager) fail(err error) error {
	m.log.Error("shift operation failed", "error", err)
	return err
}

func shiftID(date string, n int) string {
	return fmt.Sprintf("%s-S%d", date, n)
}
