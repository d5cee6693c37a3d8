/*
errors.go - Error taxonomy for the ledger

ERROR CATEGORIES:
  1. Validation errors - malformed date, non-positive lines, empty line
     set, over-return. Raised before any state changes.
  2. Not-found errors - an operation names an id the ledger doesn't hold.
  3. Persistence errors - the port failed to load or save.

USAGE:
  if errors.Is(err, ledger.ErrValidation) { ... }

  var ve *ledger.ValidationError
  if errors.As(err, &ve) {
      fmt.Println(ve.Field, ve.Reason)
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every input or business-rule rejection.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no transaction has the requested id.
	ErrNotFound = errors.New("transaction not found")

	// ErrPersistence is returned when the persistence port fails.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field and a human-readable reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError carries the missing id.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction #%d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a failure from the port.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s ledger: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }
