package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a shopchat error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotIdentified    ErrorCode = "NOT_IDENTIFIED"     // 401
	ErrNoPreviousSearch ErrorCode = "NO_PREVIOUS_SEARCH" // 412
	ErrBackend          ErrorCode = "BACKEND_ERROR"      // 502
	ErrBadPayload       ErrorCode = "BAD_PAYLOAD"        // 502
	ErrInternal         ErrorCode = "INTERNAL"           // 500
)

// ShopError represents a structured error with code, status, and details.
type ShopError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ShopError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ShopError {
	return &ShopError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotIdentified creates a 401 error for operations that require an
// established session identity.
func NewNotIdentified() *ShopError {
	return &ShopError{
		Code:    ErrNotIdentified,
		Status:  401,
		Message: "no session identity; run identify with your email first",
	}
}

// NewNoPreviousSearch creates a 412 error for a load-more request issued
// before any search has run for that list kind.
func NewNoPreviousSearch(kind string) *ShopError {
	return &ShopError{
		Code:    ErrNoPreviousSearch,
		Status:  412,
		Message: fmt.Sprintf("no previous search to page through for %q", kind),
		Details: map[string]any{"kind": kind},
	}
}

// NewBackend creates a 502 error for a non-success backend response.
func NewBackend(status int, body string) *ShopError {
	return &ShopError{
		Code:    ErrBackend,
		Status:  502,
		Message: fmt.Sprintf("dialogue backend returned status %d", status),
		Details: map[string]any{"backend_status": status, "body": body},
	}
}

// NewBadPayload creates a 502 error for an undecodable backend body.
// The UI degrades to a plain apology turn on this code.
func NewBadPayload(err error) *ShopError {
	details := map[string]any{}
	if err != nil {
		details["decode_error"] = err.Error()
	}
	return &ShopError{
		Code:    ErrBadPayload,
		Status:  502,
		Message: "malformed backend payload",
		Details: details,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *ShopError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ShopError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a ShopError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *ShopError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
