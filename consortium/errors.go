/*
errors.go - Error types for the consortium domain

PURPOSE:
  All error types in one place. The schedule engine itself almost never
  fails: missing index rows and empty inputs degrade to defined fallbacks.
  Errors come from structurally invalid input and from the persistence
  boundary (business-key collisions, missing records).

ERROR CATEGORIES:
  1. Not found - quota, index, credit usage
  2. Conflict  - duplicate group/quota number, duplicate index type/month
  3. Invalid   - negative term, malformed quota fields

USAGE:
    if errors.Is(err, consortium.ErrDuplicateQuota) {
        // 409
    }

SEE ALSO:
  - quota.go: Validate
  - api/handlers.go: maps categories to HTTP status codes
*/
package consortium

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrQuotaNotFound is returned when a referenced quota doesn't exist.
	ErrQuotaNotFound = errors.New("quota not found")

	// ErrIndexNotFound is returned when a referenced index row doesn't exist.
	ErrIndexNotFound = errors.New("correction index not found")

	// ErrCreditUsageNotFound is returned when a referenced credit usage doesn't exist.
	ErrCreditUsageNotFound = errors.New("credit usage not found")

	// ErrInstallmentNotFound is returned for an installment number outside 1..term.
	ErrInstallmentNotFound = errors.New("installment not found")

	// ErrDuplicateQuota is returned when group+quota number is already taken.
	ErrDuplicateQuota = errors.New("duplicate group/quota number")

	// ErrDuplicateIndex is returned when an index row for the same type and
	// month already exists.
	ErrDuplicateIndex = errors.New("duplicate index type/month")

	// ErrInvalidTerm is returned for a negative term.
	ErrInvalidTerm = errors.New("invalid term")

	// ErrInvalidQuota is returned when quota fields fail validation.
	ErrInvalidQuota = errors.New("invalid quota")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateQuotaError names the colliding contract key.
type DuplicateQuotaError struct {
	Group       string
	QuotaNumber string
	ExistingID  string
}

func (e *DuplicateQuotaError) Error() string {
	return fmt.Sprintf("group %s quota %s already registered (id: %s)", e.Group, e.QuotaNumber, e.ExistingID)
}

func (e *DuplicateQuotaError) Unwrap() error {
	return ErrDuplicateQuota
}

// DuplicateIndexError names the colliding index observation.
type DuplicateIndexError struct {
	Type  IndexType
	Month time.Time
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("index %s already has a rate for %s", e.Type, e.Month.Format("2006-01"))
}

func (e *DuplicateIndexError) Unwrap() error {
	return ErrDuplicateIndex
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Field == "term_months" {
		return ErrInvalidTerm
	}
	return ErrInvalidQuota
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuotaNotFound) ||
		errors.Is(err, ErrIndexNotFound) ||
		errors.Is(err, ErrCreditUsageNotFound) ||
		errors.Is(err, ErrInstallmentNotFound)
}

// IsConflict returns true if the error is a business-key collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateQuota) || errors.Is(err, ErrDuplicateIndex)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuota) || errors.Is(err, ErrInvalidTerm)
}
