package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound         = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation       = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal         = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss        = New("CACHE_MISS", http.StatusNotFound, "key not found")
	ErrUnknownTemplate  = New("UNKNOWN_TEMPLATE", http.StatusNotFound, "unknown template")
	ErrExportFailure    = New("EXPORT_FAILED", http.StatusInternalServerError, "export failed")
	ErrPersistenceRead  = New("PERSISTENCE_READ", http.StatusInternalServerError, "stored data unreadable")
	ErrUnsupportedMedia = New("UNSUPPORTED_MEDIA", http.StatusUnsupportedMediaType, "unsupported media type")
)

// ExportFailure reports a failed export with the reason as message.
// A "not found" reason maps to 404 so callers can tell a missing view from a broken capture.
func ExportFailure(reason string, err error) *Error {
	status := ErrExportFailure.Status
	if reason == ExportReasonNotFound {
		status = http.StatusNotFound
	}
	return &Error{Code: ErrExportFailure.Code, Status: status, Message: reason, Err: err}
}

// Export failure reasons.
const (
	ExportReasonNotFound      = "not found"
	ExportReasonCaptureFailed = "capture failed"
	ExportReasonEncodeFailed  = "encode failed"
	ExportReasonStoreFailed   = "store failed"
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
