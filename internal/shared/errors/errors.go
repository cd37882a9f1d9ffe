package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by all modules.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrPaymentRequired  = errors.New("payment required")
	ErrRateLimited      = errors.New("rate limited")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("resource conflict")
	ErrPersistence      = errors.New("persistence failure")
	ErrInternal         = errors.New("internal error")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return NewAppError("UNAUTHENTICATED", message, http.StatusUnauthorized, ErrUnauthenticated)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string) *AppError {
	return NewAppError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(message string) *AppError {
	if message == "" {
		message = "Free Trial Has Expired"
	}
	return NewAppError("QUOTA_EXCEEDED", message, http.StatusForbidden, ErrQuotaExceeded)
}

// PaymentRequired creates a payment required error.
func PaymentRequired(message string) *AppError {
	return NewAppError("PAYMENT_REQUIRED", message, http.StatusPaymentRequired, ErrPaymentRequired)
}

// RateLimited creates a rate limited error.
func RateLimited(message string) *AppError {
	if message == "" {
		message = "too many requests"
	}
	return NewAppError("RATE_LIMITED", message, http.StatusTooManyRequests, ErrRateLimited)
}

// SignatureInvalid creates a signature verification error.
func SignatureInvalid(err error) *AppError {
	return NewAppError("SIGNATURE_INVALID", "Webhook Error: invalid signature", http.StatusBadRequest,
		fmt.Errorf("%w: %v", ErrSignatureInvalid, err))
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return NewAppError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, ErrNotFound)
}

// Persistence wraps a storage failure.
func Persistence(message string, err error) *AppError {
	return NewAppError("PERSISTENCE_FAILURE", message, http.StatusInternalServerError,
		fmt.Errorf("%w: %v", ErrPersistence, err))
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	if message == "" {
		message = "Internal Error"
	}
	return NewAppError("INTERNAL_ERROR", message, http.StatusInternalServerError, err)
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetMessage returns the client-facing message for an error.
// Errors without an AppError in their chain are not exposed.
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal Error"
}
