package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNetwork            = errors.New("network error")
	ErrTimeout            = errors.New("request timed out")
	ErrUpstream           = errors.New("upstream error")
	ErrPrecondition       = errors.New("precondition failed")
	ErrCompareInFlight    = errors.New("comparison already in progress")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func InvalidCredentials(message string) *AppError {
	if message == "" {
		message = "invalid username or password"
	}
	return &AppError{
		Err:        ErrInvalidCredentials,
		Code:       "INVALID_CREDENTIALS",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// Console errors. Their messages are shown to the operator as-is.

func Network(message string, err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrNetwork, err),
		Code:       "NETWORK_ERROR",
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Err:        ErrTimeout,
		Code:       "TIMEOUT",
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
	}
}

func Upstream(message string, statusCode int) *AppError {
	if statusCode < 400 {
		statusCode = http.StatusBadGateway
	}
	return &AppError{
		Err:        ErrUpstream,
		Code:       "UPSTREAM_ERROR",
		Message:    message,
		StatusCode: statusCode,
	}
}

func PreconditionFailed(message string) *AppError {
	return &AppError{
		Err:        ErrPrecondition,
		Code:       "PRECONDITION_FAILED",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func CompareInFlight() *AppError {
	return &AppError{
		Err:        ErrCompareInFlight,
		Code:       "COMPARE_IN_FLIGHT",
		Message:    "a comparison is already in progress",
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
