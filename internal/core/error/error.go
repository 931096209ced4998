package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// StoreErrorMessage describes long-term memory store failures.
	StoreErrorMessage = "memory store operation failed"
	// ModelErrorMessage describes language model invocation failures.
	ModelErrorMessage = "model invocation failed"
	// LogErrorMessage describes conversation log persistence failures.
	LogErrorMessage = "conversation log operation failed"
	// RateLimitMessage is used when a provider throttles the caller.
	RateLimitMessage = "rate limit exceeded"
)

// AppError wraps an underlying error with an HTTP-like status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf returns the status carried by the first AppError in the chain,
// or http.StatusInternalServerError when there is none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// WrapStore wraps a memory store error.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, StoreErrorMessage)
}

// WrapModel wraps a model provider error. Throttling errors keep a 429 status
// so retry classification can rely on the status as well as the message.
func WrapModel(err error, status int) error {
	if err == nil {
		return nil
	}
	if status == http.StatusTooManyRequests {
		return New(err, status, RateLimitMessage)
	}
	if status == 0 {
		status = http.StatusBadGateway
	}
	return New(err, status, ModelErrorMessage)
}

// WrapLog wraps a conversation log persistence error.
func WrapLog(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, LogErrorMessage)
}
