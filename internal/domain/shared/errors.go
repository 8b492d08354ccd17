package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeStockShortage    = "STOCK_SHORTAGE"
	CodeConflict         = "CONFLICT"
	CodeInvalidState     = "INVALID_STATE"
	CodeInternal         = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors.Is works against
// the sentinel values below regardless of message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError reports a missing entity by kind and id.
func NewNotFoundError(entity string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", entity, id))
}

// NewValidationError reports a rejected input field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    CodeValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NewConflictError reports a unique-key collision.
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewInvalidStateError reports an operation that the current status forbids.
func NewInvalidStateError(entity, from, to string) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf("cannot transition %s from %s to %s", entity, from, to))
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidationFailed = NewDomainError(CodeValidationFailed, "Validation failed")
	ErrStockShortage    = NewDomainError(CodeStockShortage, "Insufficient stock available")
	ErrConflict         = NewDomainError(CodeConflict, "Resource already exists")
	ErrInvalidState     = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrNoFieldsToUpdate = NewValidationError("", "No fields to update")
)

// CodeOf extracts the domain code from err, defaulting to INTERNAL.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
