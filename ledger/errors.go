/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All error kinds in one place. The taxonomy the HTTP layer maps to status
  codes:

    NotFound         entity absent OR not owned by the caller - the two are
                     deliberately indistinguishable so existence of other
                     users' data never leaks
    Forbidden        used ONLY by transaction deletion, which distinguishes
                     "exists but owned by someone else" for correct HTTP
                     semantics (an intentional asymmetry)
    ValidationFailed malformed or out-of-range input, caught before any write
    Conflict         uniqueness violations (duplicate budget month)
    anything else    internal persistence failure, surfaced generically

USAGE:
  if errors.Is(err, ledger.ErrNotFound) { ... }
  var nf *ledger.NotFoundError
  if errors.As(err, &nf) { log nf.Entity ... }

SEE ALSO:
  - lifecycle.go: Fails fast on NotFound/Validation before any write
  - api/handlers.go: Maps the taxonomy to status codes
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
	// ErrNotFound is returned when a record is absent or not owned by the
	// acting user. The two cases are indistinguishable on purpose.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned by transaction deletion when the row exists
	// but belongs to another user.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed or out-of-range input,
	// always before any write happens.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned for uniqueness violations, e.g. a second
	// budget for the same category and month.
	ErrConflict = errors.New("conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the entity that was missing or not owned.
type NotFoundError struct {
	Entity string // "account", "category", "credit card", ...
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError describes a uniqueness violation.
type ConflictError struct {
	Entity  string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err is the not-found kind.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether err is the caller's fault (maps to a 4xx).
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict)
}
