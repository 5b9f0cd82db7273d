package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// The HTTP boundary maps each of them to a status code; infrastructure
// errors (database, network) are wrapped into ErrInternal instead.

var (
	// ErrBadRequest indicates malformed or missing input.
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidID indicates the identifier is not well formed.
	ErrInvalidID = fmt.Errorf("%w: invalid or missing id", ErrBadRequest)

	// ErrNotFound indicates no record matches the identifier.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an active-uniqueness violation, a restore onto
	// an already-active record, or a store-level duplicate key.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates bad credentials or an absent/invalid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an unexpected infrastructure failure.
	ErrInternal = errors.New("internal server error")
)

// ValidationError reports the first field rule violated by a payload.
type ValidationError struct {
	// Field is the offending payload field.
	Field string

	// Reason is a human-readable description of the violated rule.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Unwrap classifies validation failures as bad requests.
func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
