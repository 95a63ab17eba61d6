// Package llmerrors provides structured error classification and retry
// configuration for model gateway calls.
package llmerrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes gateway errors for retry logic.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, violates policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown

	// ErrorTypeUnavailable represents persistent provider unavailability after
	// retries are exhausted. Not retried further.
	ErrorTypeUnavailable
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "invalid"
	}
}

// RetryConfig defines exponential backoff configuration for an error type.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfigs provides default retry configurations per error type.
//
//nolint:gochecknoglobals // Package defaults
var DefaultRetryConfigs = map[ErrorType]RetryConfig{
	ErrorTypeEmptyResponse: {
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeRateLimit: {
		MaxRetries:    6,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeTransient: {
		MaxRetries:    4,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeAuth:      {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeBadPrompt: {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeUnknown: {
		MaxRetries:    1,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeUnavailable: {MaxRetries: 0, BackoffFactor: 1.0},
}

// Error is a classified gateway error with retry metadata.
type Error struct {
	Err        error
	Message    string
	Type       ErrorType
	StatusCode int // HTTP status code if applicable, zero otherwise
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("gateway error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether this error type should be retried. Blocklist
// approach: everything is retryable unless explicitly non-retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeUnavailable:
		return false
	default:
		return true
	}
}

// GetRetryConfig returns the retry configuration for this error type.
func (e *Error) GetRetryConfig() RetryConfig {
	if cfg, exists := DefaultRetryConfigs[e.Type]; exists {
		return cfg
	}
	return DefaultRetryConfigs[ErrorTypeUnknown]
}

// NewError creates a classified error with a message.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a classified error wrapping an underlying one.
func Wrap(errorType ErrorType, err error) *Error {
	return &Error{Type: errorType, Err: err}
}

// WithStatus creates a classified error carrying a provider status code.
func WithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// NewUnavailableError marks an error as persistent unavailability after the
// given number of attempts.
func NewUnavailableError(err error, attempts int) *Error {
	return &Error{
		Type:    ErrorTypeUnavailable,
		Err:     err,
		Message: fmt.Sprintf("provider unavailable after %d attempts: %v", attempts, err),
	}
}

// Is checks whether an error is classified as a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not
// classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable reports whether an arbitrary error should be retried.
// Unclassified errors default to retryable-once via ErrorTypeUnknown.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return true
}
