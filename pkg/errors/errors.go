package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// AppError represents an application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidParameter, ErrInvalidRange:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrSlotConflict, ErrSlotAlreadyBooked:
		return http.StatusConflict
	case ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether repeating the whole operation may succeed.
func (e *AppError) Retryable() bool {
	return e.Code == ErrStoreUnavailable
}

// WithDetail attaches a structured detail rendered to clients.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error codes
const (
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrInvalidParameter  ErrorCode = "INVALID_PARAMETER"
	ErrInvalidRange      ErrorCode = "INVALID_RANGE"
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrForbidden         ErrorCode = "FORBIDDEN"
	ErrSlotConflict      ErrorCode = "SLOT_CONFLICT"
	ErrSlotAlreadyBooked ErrorCode = "SLOT_ALREADY_BOOKED"
	ErrStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
	ErrInternal          ErrorCode = "INTERNAL"
)

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func InvalidParameter(message string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidParameter,
		Message: message,
		Err:     err,
	}
}

// InvalidRange is an InvalidParameter raised for unparseable or inverted
// date and time bounds.
func InvalidRange(message string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidRange,
		Message: message,
		Err:     err,
	}
}

func SlotConflict(message string) *AppError {
	return &AppError{
		Code:    ErrSlotConflict,
		Message: message,
	}
}

func SlotAlreadyBooked(err error) *AppError {
	return &AppError{
		Code:    ErrSlotAlreadyBooked,
		Message: "slot is no longer available",
		Err:     err,
	}
}

func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Message: "storage temporarily unavailable, retry the request",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrNotFound)
}

// IsInvalidParameter is true for both INVALID_PARAMETER and INVALID_RANGE.
func IsInvalidParameter(err error) bool {
	return Is(err, ErrInvalidParameter) || Is(err, ErrInvalidRange)
}

func IsRetryable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Retryable()
}
