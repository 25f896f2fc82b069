package ledger

import (
	"errors"
	"fmt"
)

// Code categorizes ledger errors. Every failure the engine surfaces carries
// exactly one of these four codes.
type Code string

const (
	// CodeValidation marks rejected input: an empty cart, no open shift for
	// a sale, the day's shift cap reached. The caller can correct and retry.
	CodeValidation Code = "VALIDATION"

	// CodeInvariant marks operations that would corrupt ledger state:
	// opening a second shift, closing with none open, cancelling an order
	// that is not a positive-total original. Rejected with no state change.
	CodeInvariant Code = "INVARIANT_VIOLATION"

	// CodeStorage marks a failed store transaction. The whole operation
	// aborted; no partial writes exist.
	CodeStorage Code = "STORAGE"

	// CodeNetwork marks a failed sync batch. Never fatal; affected orders
	// stay queued for the next pass.
	CodeNetwork Code = "NETWORK"
)

// Error is the single error type surfaced by the ledger engine.
type Error struct {
	Code    Code
	Op      string // operation that failed, e.g. "orders.place"
	Message string
	Err     error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewValidation creates a VALIDATION error.
func NewValidation(op, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewInvariant creates an INVARIANT_VIOLATION error.
func NewInvariant(op, format string, args ...any) *Error {
	return &Error{Code: CodeInvariant, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapStorage wraps a store failure as a STORAGE error.
func WrapStorage(op string, err error) *Error {
	return &Error{Code: CodeStorage, Op: op, Message: "transaction failed", Err: err}
}

// WrapNetwork wraps a remote/sync failure as a NETWORK error.
func WrapNetwork(op string, err error) *Error {
	return &Error{Code: CodeNetwork, Op: op, Message: "remote call failed", Err: err}
}

// CodeOf extracts the ledger error code from err.
// Returns "" if err is not a *Error (wrapped or not).
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsValidation reports whether err is a VALIDATION error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsInvariant reports whether err is an INVARIANT_VIOLATION error.
func IsInvariant(err error) bool { return CodeOf(err) == CodeInvariant }

// IsStorage reports whether err is a STORAGE error.
func IsStorage(err error) bool { return CodeOf(err) == CodeStorage }

// IsNetwork reports whether err is a NETWORK error.
func IsNetwork(err error) bool { return CodeOf(err) == CodeNetwork }
