// Package errors provides typed errors for the titan trading client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	// ErrInvalidCredential indicates an access token that could not be decoded.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrExpiredCredential indicates an access token whose expiry has passed.
	ErrExpiredCredential = errors.New("expired credential")

	// ErrTickerNotFound indicates the server marked a ticker symbol invalid.
	ErrTickerNotFound = errors.New("ticker not found")

	// ErrFetchFailed indicates a transport or network failure.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrTradeFailed indicates the server rejected a buy or sell order.
	ErrTradeFailed = errors.New("trade failed")

	// ErrInsufficientHoldings indicates a sell for more shares than are held.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrValidation indicates a local input check failed before any request.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized indicates the session is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Details contains additional error details, e.g. per-field messages.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// InvalidCredential creates an invalid credential error.
func InvalidCredential(cause error) *AppError {
	return &AppError{
		Type:    ErrInvalidCredential,
		Message: "invalid access token",
		Cause:   cause,
	}
}

// ExpiredCredential creates an expired credential error.
func ExpiredCredential() *AppError {
	return &AppError{
		Type:    ErrExpiredCredential,
		Message: "session expired",
	}
}

// TickerNotFound creates a ticker not found error. The message is the
// server-provided one when available.
func TickerNotFound(message string) *AppError {
	if message == "" {
		message = "Invalid ticker symbol."
	}
	return &AppError{
		Type:    ErrTickerNotFound,
		Message: message,
	}
}

// FetchFailed creates a fetch failed error.
func FetchFailed(cause error) *AppError {
	return &AppError{
		Type:    ErrFetchFailed,
		Message: "Failed to fetch stock data.",
		Cause:   cause,
	}
}

// TradeFailed creates a trade failed error, preferring the server message.
func TradeFailed(message string, cause error) *AppError {
	if message == "" {
		message = "Trade could not be completed."
	}
	return &AppError{
		Type:    ErrTradeFailed,
		Message: message,
		Cause:   cause,
	}
}

// InsufficientHoldings creates an insufficient holdings error.
func InsufficientHoldings(held float64) *AppError {
	return &AppError{
		Type:    ErrInsufficientHoldings,
		Message: fmt.Sprintf("You only hold %g shares.", held),
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Message extracts a user-facing message from any error. AppErrors surface
// their Message; anything else falls back to the provided string.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if fallback != "" {
		return fallback
	}
	return "An unexpected error occurred. Please try again."
}
