package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthorizationDenied is the expected outcome of a well-formed request
	// lacking sufficient rights. It never carries the missing right.
	ErrAuthorizationDenied = errors.New("insufficient permission")
	// ErrEscalationDenied covers wrong secret, ineligible principal kind and
	// expired or absent escalation sessions. Kept distinct from
	// ErrAuthorizationDenied so callers can re-prompt for the secret.
	ErrEscalationDenied = errors.New("escalation denied")
	// ErrIntegrity flags an invariant violation caught at write time, such as
	// cyclic department parentage or a non-master escalation membership.
	ErrIntegrity = errors.New("integrity violation")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level input problems. It satisfies
// errors.Is(err, ErrValidation) through Unwrap.
type ValidationError struct {
	Fields []FieldError
}

// ErrValidation is the sentinel all ValidationError values unwrap to.
var ErrValidation = errors.New("validation failed")

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add appends a field error and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }
