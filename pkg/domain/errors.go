package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError so transport layers can map it.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInvalidState ErrorCode = "INVALID_STATE"
	CodeInvalidRange ErrorCode = "INVALID_RANGE"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// DomainError is the error type returned by domain and application code.
type DomainError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Sentinels for errors.Is matching on the code only.
var (
	ErrValidation   = &DomainError{Code: CodeValidation}
	ErrNotFound     = &DomainError{Code: CodeNotFound}
	ErrConflict     = &DomainError{Code: CodeConflict}
	ErrInvalidState = &DomainError{Code: CodeInvalidState}
	ErrInvalidRange = &DomainError{Code: CodeInvalidRange}
	ErrInternal     = &DomainError{Code: CodeInternal}
)

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel (message-less) error with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// WithDetails attaches structured details and returns the same error.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	e.Details = details
	return e
}

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewNotFoundError reports that an entity with the given id does not exist.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewConflictError reports a clash with existing state.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewInvalidStateError reports a forbidden state machine transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Details: map[string]any{"from": from, "to": to},
	}
}

// NewInvalidRangeError reports a date range whose end is not after its start
// or that is longer than a rental may last.
func NewInvalidRangeError(message string) *DomainError {
	return &DomainError{Code: CodeInvalidRange, Message: message}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *DomainError {
	return &DomainError{Code: CodeInternal, Message: message, Err: err}
}

// AsDomainError extracts a DomainError from err, wrapping anything else as internal.
func AsDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return NewInternalError("an unexpected error occurred", err)
}
