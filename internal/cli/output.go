package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/coppertill/till/internal/ledger"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // rejected operation (validation or invariant)
	ExitCommandError = 2 // command error (bad flags, unreadable database)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Formatter handles JSON vs text output for commands.
type Formatter struct {
	Format string
	Writer io.Writer
}

// Response is the standard JSON envelope for command output.
type Response struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *ErrorDoc `json:"error,omitempty"`
}

// ErrorDoc is the error body inside a Response.
type ErrorDoc struct {
	Code    string `json:"code"` // ledger error code
	Message string `json:"message"`
}

// newFormatter builds a Formatter from the root flags and the command's
// stdout.
func newFormatter(opts *RootOptions, w io.Writer) *Formatter {
	return &Formatter{Format: opts.Format, Writer: w}
}

// JSON reports whether output is machine-readable. Commands with rich text
// renderings check this and write their own text form.
func (f *Formatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result. In text mode data is printed with
// its String form; commands needing richer text output render before
// calling this with nil.
func (f *Formatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if data != nil {
		fmt.Fprintln(f.Writer, data)
	}
	return nil
}

// Fail outputs a ledger error and converts it to the matching exit code:
// VALIDATION and INVARIANT_VIOLATION are rejected operations (exit 1),
// STORAGE and NETWORK are command errors (exit 2).
func (f *Formatter) Fail(err error) error {
	code := string(ledger.CodeOf(err))
	if code == "" {
		code = "ERROR"
	}

	if f.JSON() {
		if encErr := json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ErrorDoc{Code: code, Message: err.Error()},
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %v\n", code, err)
	}

	exit := ExitFailure
	if ledger.IsStorage(err) || ledger.IsNetwork(err) {
		exit = ExitCommandError
	}
	return &ExitError{Code: exit, Message: err.Error(), Err: err}
}
