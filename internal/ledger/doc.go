// Package ledger defines the domain model for the terminal's cash ledger
// and order lifecycle engine.
//
// The package is pure: no I/O, no storage, no clock reads. Everything here
// is a value type or a function over value types, which keeps the
// money-critical arithmetic trivially testable.
//
// # Critical Patterns
//
// CP-1: Append-Only Money Trail
//   - Every monetary or audit-worthy event is exactly one CashDrawerActivity
//   - Activities are never edited or deleted after being written
//   - Cancellation creates a reversal order plus a REFUND activity; nothing
//     is ever removed
//
// CP-2: Derived Values Are Recomputable
//   - ExpectedCash, per-method totals, and the daily summary are functions
//     of the activity/order logs, never independent sources of truth
//
// CP-3: Single Typed Error
//   - All failures surface as *Error with a Code from the four-member
//     taxonomy (VALIDATION, INVARIANT_VIOLATION, STORAGE, NETWORK)
//
// Monetary amounts use shopspring/decimal throughout. float64 never touches
// money in this package.
package ledger
