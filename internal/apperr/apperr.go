// Package apperr defines the closed set of failure kinds a collection run can end with.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates that a required setting is absent or invalid.
	ErrConfig = errors.New("configuration error")
	// ErrAuth indicates that a credential could not be acquired.
	ErrAuth = errors.New("authentication error")
	// ErrTransport indicates a failed page fetch: non-success status, error payload or malformed page.
	ErrTransport = errors.New("transport error")
	// ErrPersistence indicates a store failure; the run's transaction has been rolled back.
	ErrPersistence = errors.New("persistence error")
	// ErrBestEffort marks a secondary lookup failure. It is logged and never fails a run.
	ErrBestEffort = errors.New("best-effort lookup failed")
)

var kinds = []struct {
	kind error
	name string
}{
	{ErrConfig, "config"},
	{ErrAuth, "auth"},
	{ErrTransport, "transport"},
	{ErrPersistence, "persistence"},
	{ErrBestEffort, "best_effort"},
}

// Error carries the failure kind, the operation that failed and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Wrap annotates err with a kind and operation. A nil err stays nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns a short label for the kind of err, or "unknown".
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "unknown"
}
