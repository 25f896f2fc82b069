// Package orders implements the order lifecycle engine: placement, status
// advancement, completion and cancellation-as-reversal.
//
// Every operation that touches money writes through the cash-drawer log
// and the daily summary inside one store transaction. Orders are never
// deleted; a cancellation marks the original cancelled and inserts a
// sign-negated reversal order alongside a REFUND drawer activity.
package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/shift"
	"github.com/coppertill/till/internal/store"
)

// Ledger owns order state transitions.
//
// Thread-safety model: the terminal serializes logical calls, and the
// store's single connection serializes transactions underneath. The one
// discipline that matters is that every read-then-write (ID allocation,
// status checks, summary bumps) runs inside a single store.WithTx.
type Ledger struct {
	store   *store.Store
	shifts  *shift.Manager
	pricing ledger.Pricing
	clock   ledger.Clock
	log     *slog.Logger
	notify  func() // best-effort sync nudge, may be nil
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the wall clock (tests).
func WithClock(c ledger.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger overrides the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Ledger) { l.log = lg }
}

// New creates an order ledger writing through the given store and shift
// manager.
func New(st *store.Store, shifts *shift.Manager, pricing ledger.Pricing, opts ...Option) *Ledger {
	l := &Ledger{
		store:   st,
		shifts:  shifts,
		pricing: pricing,
		clock:   ledger.SystemClock{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetNotifier installs the callback fired after ledger writes that produce
// new sync work (placement, cancellation). The callback must not block.
func (l *Ledger) SetNotifier(fn func()) { l.notify = fn }

// PlaceOrder creates an order from the cart, allocates its day-scoped
// sequential ID, and appends the SALE drawer activity - all in one
// transaction.
//
// The cart is never mutated, so on a VALIDATION failure the caller can
// simply retry with the same cart.
func (l *Ledger) PlaceOrder(ctx context.Context, cart []ledger.OrderItem, method ledger.PaymentMethod, cashReceived *decimal.Decimal, disc ledger.Discount) (*ledger.Order, error) {
	const op = "orders.place"

	if len(cart) == 0 {
		return nil, l.fail(ledger.NewValidation(op, "cart is empty"))
	}
	for _, it := range cart {
		if it.Quantity <= 0 {
			return nil, l.fail(ledger.NewValidation(op, "item %q has non-positive quantity", it.Name))
		}
		if it.Price.IsNegative() {
			return nil, l.fail(ledger.NewValidation(op, "item %q has negative price", it.Name))
		}
	}
	if method != ledger.PayCash && method != ledger.PayQR {
		return nil, l.fail(ledger.NewValidation(op, "unsupported payment method %q", method))
	}
	if l.shifts.Current() == nil {
		return nil, l.fail(ledger.NewValidation(op, "no shift is open"))
	}

	totals := ledger.ComputeTotals(cart, disc, l.pricing)
	if totals.DiscountClamped {
		l.log.Warn("discount exceeded valid range, clamped",
			"input", disc.String(), "applied", totals.Discount.String())
	}
	if method == ledger.PayCash && cashReceived != nil && cashReceived.LessThan(totals.Total) {
		return nil, l.fail(ledger.NewValidation(op, "cash received %s is less than total %s", cashReceived, totals.Total))
	}
	if method == ledger.PayQR && cashReceived != nil {
		return nil, l.fail(ledger.NewValidation(op, "cash received does not apply to QR payment"))
	}

	now := l.clock.Now()
	date := ledger.DateKey(now)

	items := make([]ledger.OrderItem, len(cart))
	copy(items, cart)

	var order *ledger.Order
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		// The count and the insert must share a transaction, or two rapid
		// placements could allocate the same ID.
		n, err := tx.CountOrdersForDay(date + "-")
		if err != nil {
			return err
		}

		order = &ledger.Order{
			ID:                 fmt.Sprintf("%s-%04d", date, n+1),
			Items:              items,
			Subtotal:           totals.Subtotal,
			DiscountValue:      totals.Discount,
			ServiceChargeValue: totals.ServiceCharge,
			Tax:                totals.Tax,
			Total:              totals.Total,
			Timestamp:          now,
			PaymentMethod:      method,
			CashReceived:       cashReceived,
			Status:             ledger.StatusCooking,
			SyncStatus:         ledger.SyncPending,
		}
		if err := tx.InsertOrder(order); err != nil {
			return err
		}

		return l.shifts.AppendSaleOrRefund(tx, ledger.ActSale, order.Total, method,
			fmt.Sprintf("sale %s", order.ID), order.ID)
	})
	if err != nil {
		if ledger.CodeOf(err) != "" {
			return nil, l.fail(err)
		}
		return nil, l.fail(ledger.WrapStorage(op, err))
	}

	l.log.Info("order placed",
		"order_id", order.ID, "total", order.Total.String(), "method", string(method))
	l.nudgeSync()
	return order, nil
}

// Advance moves an order forward through cooking -> ready -> completed.
// Backward moves and moves out of terminal states are rejected with
// INVARIANT_VIOLATION; an unknown order is a VALIDATION failure.
// Advancing to completed performs the full completion work (see Complete).
func (l *Ledger) Advance(ctx context.Context, orderID string, target ledger.OrderStatus) (*ledger.Order, error) {
	const op = "orders.advance"

	var order *ledger.Order
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		order, err = tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ledger.NewValidation(op, "order %s not found", orderID)
		}
		if !order.Status.CanAdvanceTo(target) {
			return ledger.NewInvariant(op, "order %s cannot move %s -> %s", orderID, order.Status, target)
		}

		if target == ledger.StatusCompleted {
			return l.completeInTx(tx, order)
		}

		order.Status = target
		return tx.UpdateOrder(order)
	})
	if err != nil {
		if ledger.CodeOf(err) != "" {
			return nil, l.fail(err)
		}
		return nil, l.fail(ledger.WrapStorage(op, err))
	}

	l.log.Info("order advanced", "order_id", order.ID, "status", string(order.Status))
	return order, nil
}

// Complete marks an order completed: records preparation time, stamps
// readyAt, retroactively appends the SALE activity if none exists (an
// order completed straight from a kitchen display), and bumps the daily
// summary - all in one transaction with the order update.
func (l *Ledger) Complete(ctx context.Context, orderID string) (*ledger.Order, error) {
	return l.Advance(ctx, orderID, ledger.StatusCompleted)
}

// completeInTx performs completion inside the caller's transaction.
func (l *Ledger) completeInTx(tx *store.Tx, order *ledger.Order) error {
	now := l.clock.Now()
	prep := int64(now.Sub(order.Timestamp).Seconds())

	order.Status = ledger.StatusCompleted
	order.ReadyAt = &now
	order.PrepSeconds = &prep
	if err := tx.UpdateOrder(order); err != nil {
		return err
	}

	hasSale, err := tx.HasSaleActivity(order.ID)
	if err != nil {
		return err
	}
	if !hasSale {
		if l.shifts.Current() == nil {
			// An order completed with no drawer to attribute the sale to
			// keeps its money trail in the order row alone.
			l.log.Warn("no open shift for retroactive sale activity", "order_id", order.ID)
		} else {
			err := l.shifts.AppendSaleOrRefund(tx, ledger.ActSale, order.Total,
				order.PaymentMethod, fmt.Sprintf("sale %s (completed)", order.ID), order.ID)
			if err != nil {
				return err
			}
		}
	}

	// Cancelled orders and reversals never count toward the day's sales.
	if !order.IsReversal() {
		return tx.BumpDailySummary(ledger.DateKey(order.Timestamp), order.Total)
	}
	return nil
}

// Cancel voids an order by reversal. The original is marked cancelled,
// a sign-negated reversal order is inserted under "R-" + original ID, and
// one REFUND activity (positive magnitude) is appended - all in one
// transaction. Nothing is ever deleted.
//
// Returns the updated original and the reversal.
func (l *Ledger) Cancel(ctx context.Context, orderID string) (*ledger.Order, *ledger.Order, error) {
	const op = "orders.cancel"

	if l.shifts.Current() == nil {
		return nil, nil, l.fail(ledger.NewValidation(op, "no shift is open to receive the refund"))
	}

	now := l.clock.Now()
	var original, reversal *ledger.Order
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		original, err = tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		if original == nil {
			return ledger.NewValidation(op, "order %s not found", orderID)
		}
		if original.IsReversal() || !original.Total.IsPositive() {
			return ledger.NewInvariant(op, "order %s is not a positive-total original", orderID)
		}
		if original.Status == ledger.StatusCancelled {
			return ledger.NewInvariant(op, "order %s is already cancelled", orderID)
		}

		original.Status = ledger.StatusCancelled
		original.CancelledAt = &now
		original.SyncStatus = ledger.SyncPending // remote must learn the cancellation
		if err := tx.UpdateOrder(original); err != nil {
			return err
		}

		rev := original.Reversal(now)
		reversal = &rev
		if err := tx.InsertOrder(reversal); err != nil {
			return err
		}

		return l.shifts.AppendSaleOrRefund(tx, ledger.ActRefund, original.Total,
			original.PaymentMethod, fmt.Sprintf("refund %s", original.ID), original.ID)
	})
	if err != nil {
		if ledger.CodeOf(err) != "" {
			return nil, nil, l.fail(err)
		}
		return nil, nil, l.fail(ledger.WrapStorage(op, err))
	}

	l.log.Info("order cancelled",
		"order_id", original.ID, "reversal_id", reversal.ID, "refund", original.Total.String())
	l.nudgeSync()
	return original, reversal, nil
}

// ChangeDue returns the change owed on a cash order, or zero when no cash
// amount was recorded.
func ChangeDue(o *ledger.Order) decimal.Decimal {
	if o.PaymentMethod != ledger.PayCash || o.CashReceived == nil {
		return decimal.Zero
	}
	return o.CashReceived.Sub(o.Total)
}

func (l *Ledger) nudgeSync() {
	if l.notify != nil {
		l.notify()
	}
}

// fail logs an error to the audit trail before surfacing it.
func (l *Ledger) fail(err error) error {
	l.log.Error("order operation failed", "error", err)
	return err
}
