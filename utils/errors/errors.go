package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`

	cause error
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying store or filesystem error, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches on Code so callers can compare against the sentinel values below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeArchiveWriteFailed = "ARCHIVE_WRITE_FAILED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

var (
	ErrBadRequest         = NewAPIError(CodeBadRequest, "Invalid request data", http.StatusBadRequest)
	ErrNotFound           = NewAPIError(CodeNotFound, "Resource not found", http.StatusNotFound)
	ErrStoreUnavailable   = NewAPIError(CodeStoreUnavailable, "Record store unavailable", http.StatusServiceUnavailable)
	ErrArchiveWriteFailed = NewAPIError(CodeArchiveWriteFailed, "Failed to write archive", http.StatusInternalServerError)
	ErrInternal           = NewAPIError(CodeInternal, "Internal server error", http.StatusInternalServerError)
)

// BadRequest reports a missing or malformed request parameter.
func BadRequest(message string) *APIError {
	return NewAPIError(CodeBadRequest, message, http.StatusBadRequest)
}

// NotFound reports that a campaign has no usable coordinate records.
func NotFound(campaignID string) *APIError {
	return NewAPIError(CodeNotFound, fmt.Sprintf("no records for campanaID='%s'", campaignID), http.StatusNotFound)
}

// StoreUnavailable wraps a record store failure.
func StoreUnavailable(err error) *APIError {
	return Wrap(err, CodeStoreUnavailable, ErrStoreUnavailable.Message, ErrStoreUnavailable.Status)
}

// ArchiveWriteFailed wraps a filesystem failure during packaging.
func ArchiveWriteFailed(err error) *APIError {
	return Wrap(err, CodeArchiveWriteFailed, ErrArchiveWriteFailed.Message, ErrArchiveWriteFailed.Status)
}

// Internal wraps an unexpected error that carries no APIError of its own.
func Internal(err error) *APIError {
	return Wrap(err, CodeInternal, ErrInternal.Message, ErrInternal.Status)
}

// Wrap converts err into an APIError. An err that already carries an APIError
// anywhere in its chain is returned as that APIError.
func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	wrapped := NewAPIError(code, message, status, err.Error())
	wrapped.cause = err
	return wrapped
}
