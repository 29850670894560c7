package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of ledger errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeConflict           ErrorType = "conflict"
	ErrorTypeAlreadyInitialized ErrorType = "already_initialized"
	ErrorTypeInternal           ErrorType = "internal"
)

// LedgerError represents a structured error in the HealthLedger system
type LedgerError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewUnauthorizedError creates a new authorization error
func NewUnauthorizedError(code, message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeUnauthorized, Code: code, Message: message}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeNotFound, Code: code, Message: message}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeConflict, Code: code, Message: message}
}

// NewAlreadyInitializedError reports a repeated one-time setup attempt
func NewAlreadyInitializedError(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeAlreadyInitialized, Code: ErrCodeAlreadyInitialized, Message: message}
}

// NewInternalError creates a new internal error wrapping its cause
func NewInternalError(code, message string, cause error) *LedgerError {
	return &LedgerError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// ErrorTypeOf extracts the ledger error type, or ErrorTypeInternal for
// errors originating outside the ledger.
func ErrorTypeOf(err error) ErrorType {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Type
	}
	return ErrorTypeInternal
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool {
	return ErrorTypeOf(err) == ErrorTypeUnauthorized
}

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool {
	return ErrorTypeOf(err) == ErrorTypeNotFound
}

// IsConflict reports whether err is a create collision.
func IsConflict(err error) bool {
	return ErrorTypeOf(err) == ErrorTypeConflict
}

// Common error codes
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
	ErrCodeRecordAlreadyExists = "RECORD_ALREADY_EXISTS"
	ErrCodeAlreadyInitialized  = "ALREADY_INITIALIZED"
	ErrCodeNotInitialized      = "NOT_INITIALIZED"
	ErrCodeInvalidIdentity     = "INVALID_IDENTITY"
	ErrCodeInvalidRecordID     = "INVALID_RECORD_ID"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeStorageFailure      = "STORAGE_FAILURE"
)
