package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	// ErrEmptyQuery is returned for a blank user query before any remote call.
	ErrEmptyQuery = errors.New("no query provided")
	// ErrNoSummary signals that summarization produced nothing usable; the
	// ingestion pipeline skips the record rather than indexing it.
	ErrNoSummary = errors.New("no summary produced")
	// ErrInvalidListing is the base error for raw-record validation failures.
	ErrInvalidListing = errors.New("invalid listing")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
