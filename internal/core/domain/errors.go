package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form NS-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "NS-NODE-5002")
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

// Is matches another DomainError by code.
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

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
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

// ============================================================================
// Node Errors (NODE)
// ============================================================================

var (
	// ErrNodeNotFound is returned by repositories when no node exists for
	// an id. NodeStore turns it into an absent result, never an error.
	ErrNodeNotFound = NewDomainError("NS-NODE-4040", "node not found")

	// ErrSerialization indicates a caller value could not be encoded to JSON.
	// Raised before any backend call and never retried.
	ErrSerialization = NewDomainError("NS-NODE-4220", "value is not serializable")

	// ErrCorruption indicates a stored payload could not be decoded.
	ErrCorruption = NewDomainError("NS-NODE-5002", "stored payload is corrupt")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrBackendUnavailable covers connectivity failures, timeouts and
	// operations rejected by the underlying store.
	ErrBackendUnavailable = NewDomainError("NS-SYS-5030", "backend unavailable")

	// ErrArchiveUnavailable indicates the cold-storage archive could not be read.
	ErrArchiveUnavailable = NewDomainError("NS-SYS-5031", "archive unavailable")
)

// ============================================================================
// Argument and Configuration Errors (ARG, CFG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("NS-ARG-1001", "invalid argument")

	// ErrInvalidConfig indicates a configuration rejected at construction time.
	ErrInvalidConfig = NewDomainError("NS-CFG-1001", "invalid configuration")
)
