// Package domain defines the core domain models for onelogin.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form OL-<AREA>-<NNNN>; the numeric part mirrors the HTTP
// status family the error maps to.
type DomainError struct {
	Code    string // Error code (e.g., "OL-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Session errors.
var (
	// ErrSessionNotFound indicates no valid session matches the verifier.
	// The registry itself reports absence as a boolean; this error is for
	// lookup surfaces (HTTP, CLI) that must answer with a status.
	ErrSessionNotFound = NewDomainError("OL-SESS-4040", "session not found")

	// ErrSessionValidation indicates a session record is unusable.
	ErrSessionValidation = NewDomainError("OL-SESS-4001", "session validation failed")
)

// Storage errors.
var (
	// ErrStoreFailure wraps a read or write failure of the session store.
	ErrStoreFailure = NewDomainError("OL-STOR-5001", "session store failure")
)

// Argument errors.
var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("OL-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("OL-ARG-1002", "missing required argument")
)

// Authentication errors.
var (
	// ErrAPIKeyMissing indicates no API key was provided.
	ErrAPIKeyMissing = NewDomainError("OL-AUTH-4010", "api key not provided")

	// ErrAPIKeyInvalid indicates the API key does not match.
	ErrAPIKeyInvalid = NewDomainError("OL-AUTH-4011", "invalid api key")
)

// System errors.
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("OL-SYS-5000", "internal server error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("OL-SYS-4000", "bad request")

	// ErrConfig indicates invalid configuration.
	ErrConfig = NewDomainError("OL-CONF-4000", "invalid configuration")
)
