package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how money moved for a sale or refund.
type PaymentMethod string

const (
	PayCash PaymentMethod = "cash"
	PayQR   PaymentMethod = "qr"
	// PayNone marks activities with no tender attached (shift markers,
	// paid-in/out, manual drawer opens).
	PayNone PaymentMethod = "none"
)

// OrderStatus is the kitchen-facing lifecycle of an order.
//
// Transitions are strictly forward: cooking -> ready -> completed, or any
// non-terminal/terminal state -> cancelled via a reversal. Once an order is
// completed or cancelled, only its SyncStatus may still change.
type OrderStatus string

const (
	StatusCooking   OrderStatus = "cooking"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// rank orders statuses for the forward-only transition check.
// Cancelled is not part of the forward chain; it is reached only through
// CancelOrder.
func (s OrderStatus) rank() int {
	switch s {
	case StatusCooking:
		return 1
	case StatusReady:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// CanAdvanceTo reports whether a forward transition from s to target is
// allowed. Skipping a stage (cooking -> completed) is a forward move and is
// allowed; moving backward or out of a terminal state is not.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) bool {
	if s == StatusCancelled || target == StatusCancelled {
		return false
	}
	return target.rank() > s.rank()
}

// Terminal reports whether the status permits no further lifecycle change.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// SyncStatus tracks an order relative to the remote backend.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	// SyncFailed marks orders the remote explicitly rejected. Failed orders
	// are still drained on the next pass; the tag exists so operators can
	// tell rejection apart from never-delivered.
	SyncFailed SyncStatus = "failed"
)

// OrderItem is a line-item snapshot taken at sale time. Name and price are
// copied from the catalog so later menu edits never rewrite history.
type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LineTotal returns price * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is one sale (or, with negated amounts, one reversal of a sale).
type Order struct {
	ID                 string           `json:"id"`
	Items              []OrderItem      `json:"items"`
	Subtotal           decimal.Decimal  `json:"subtotal"`
	DiscountValue      decimal.Decimal  `json:"discountValue"`
	ServiceChargeValue decimal.Decimal  `json:"serviceChargeValue"`
	Tax                decimal.Decimal  `json:"tax"`
	Total              decimal.Decimal  `json:"total"`
	Timestamp          time.Time        `json:"timestamp"`
	PaymentMethod      PaymentMethod    `json:"paymentMethod"`
	CashReceived       *decimal.Decimal `json:"cashReceived,omitempty"`
	Status             OrderStatus      `json:"status"`
	SyncStatus         SyncStatus       `json:"syncStatus"`
	ReversalOf         string           `json:"reversalOf,omitempty"`
	CancelledAt        *time.Time       `json:"cancelledAt,omitempty"`
	ReadyAt            *time.Time       `json:"readyAt,omitempty"`
	PrepSeconds        *int64           `json:"preparationTimeInSeconds,omitempty"`
}

// IsReversal reports whether the order is the synthetic negation of
// another order.
func (o *Order) IsReversal() bool {
	return o.ReversalOf != ""
}

// ReversalID returns the ID the reversal of this order would carry.
func (o *Order) ReversalID() string {
	return "R-" + o.ID
}

// Reversal constructs the reversal of o: every item quantity and every
// monetary field sign-negated, ReversalOf set, sync pending. The reversal
// is created already terminal; it exists purely as a ledger record.
func (o *Order) Reversal(now time.Time) Order {
	items := make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItem{Name: it.Name, Price: it.Price, Quantity: -it.Quantity}
	}
	return Order{
		ID:                 o.ReversalID(),
		Items:              items,
		Subtotal:           o.Subtotal.Neg(),
		DiscountValue:      o.DiscountValue.Neg(),
		ServiceChargeValue: o.ServiceChargeValue.Neg(),
		Tax:                o.Tax.Neg(),
		Total:              o.Total.Neg(),
		Timestamp:          now,
		PaymentMethod:      o.PaymentMethod,
		Status:             StatusCompleted,
		SyncStatus:         SyncPending,
		ReversalOf:         o.ID,
	}
}

// ActivityType classifies cash-drawer activities.
type ActivityType string

const (
	ActShiftStart ActivityType = "SHIFT_START"
	ActSale       ActivityType = "SALE"
	ActRefund     ActivityType = "REFUND"
	ActPaidIn     ActivityType = "PAID_IN"
	ActPaidOut    ActivityType = "PAID_OUT"
	ActShiftEnd   ActivityType = "SHIFT_END"
	// ActManualOpen records a drawer opened with no monetary transaction.
	// Amount is always zero; the entry exists for the audit trail only.
	ActManualOpen ActivityType = "MANUAL_OPEN"
)

// CashDrawerActivity is one append-only ledger entry. Amount is a
// non-negative magnitude; the Type carries the direction.
type CashDrawerActivity struct {
	ID            string          `json:"id"`
	ShiftID       string          `json:"shiftId"`
	Seq           int64           `json:"seq"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          ActivityType    `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Description   string          `json:"description"`
	OrderID       string          `json:"orderId,omitempty"`
}

// ShiftStatus is the two-state shift lifecycle. CLOSED is terminal for a
// given shift ID; the next shift gets a new ID.
type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "OPEN"
	ShiftClosed ShiftStatus = "CLOSED"
)

// ShiftTotals holds the per-method figures frozen into a shift at close.
type ShiftTotals struct {
	SalesCash   decimal.Decimal `json:"salesCash"`
	SalesQR     decimal.Decimal `json:"salesQr"`
	RefundsCash decimal.Decimal `json:"refundsCash"`
	RefundsQR   decimal.Decimal `json:"refundsQr"`
	PaidIn      decimal.Decimal `json:"paidIn"`
	PaidOut     decimal.Decimal `json:"paidOut"`
}

// NetSales returns sales minus refunds across all tender methods.
func (t ShiftTotals) NetSales() decimal.Decimal {
	return t.SalesCash.Add(t.SalesQR).Sub(t.RefundsCash).Sub(t.RefundsQR)
}

// Shift is one bounded work session. The reconciliation fields
// (ExpectedCash, CashOverShort, CashToDeposit, Totals) are computed exactly
// once at close and never recomputed afterwards.
type Shift struct {
	ID                 string           `json:"id"`
	Status             ShiftStatus      `json:"status"`
	StartTime          time.Time        `json:"startTime"`
	OpeningFloat       decimal.Decimal  `json:"openingFloatAmount"`
	EndTime            *time.Time       `json:"endTime,omitempty"`
	ClosingCashCounted *decimal.Decimal `json:"closingCashCounted,omitempty"`
	CashForNextShift   *decimal.Decimal `json:"cashForNextShift,omitempty"`
	ExpectedCash       *decimal.Decimal `json:"expectedCashInDrawer,omitempty"`
	CashOverShort      *decimal.Decimal `json:"cashOverShort,omitempty"`
	CashToDeposit      *decimal.Decimal `json:"cashToDeposit,omitempty"`
	Totals             *ShiftTotals     `json:"totals,omitempty"`
}

// DailySummary is the per-calendar-day materialized rollup. It is derived
// data, rebuildable from the order table at any time, and is never treated
// as a source of truth for reconciliation.
type DailySummary struct {
	Date             string          `json:"date"`
	TotalSales       decimal.Decimal `json:"totalSales"`
	TransactionCount int64           `json:"transactionCount"`
}

// DateKey formats t as the ISO date used to key orders, shifts and daily
// summaries.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Clock abstracts wall-clock reads so components can be tested with a
// fixed time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator produces unique IDs for cash-drawer activities.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 activity IDs.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
