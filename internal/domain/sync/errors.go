package sync

import (
	"context"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error Taxonomy
// ---------------------------------------------------------------------------

// ErrorClass classifies a failure for retry and propagation decisions.
type ErrorClass string

const (
	// ErrorClassTransient marks retryable failures: timeouts, rate limits,
	// 5xx-equivalent platform responses.
	ErrorClassTransient ErrorClass = "TRANSIENT"
	// ErrorClassPermanent marks non-retryable failures: validation errors,
	// not-found, insufficient stock, exhausted retries.
	ErrorClassPermanent ErrorClass = "PERMANENT"
	// ErrorClassConflict marks failures that require human judgment, such as
	// ambiguous inventory drift. Conflicts are recorded, never auto-resolved.
	ErrorClassConflict ErrorClass = "CONFLICT"
)

// IsValid returns true if the error class is valid
func (c ErrorClass) IsValid() bool {
	switch c {
	case ErrorClassTransient, ErrorClassPermanent, ErrorClassConflict:
		return true
	default:
		return false
	}
}

// String returns the string representation of ErrorClass
func (c ErrorClass) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

var (
	// Rate-limited client errors
	ErrRateLimitExceeded = errors.New("sync: rate limit wait ceiling exceeded")
	ErrRetriesExhausted  = errors.New("sync: retries exhausted")

	// Platform errors
	ErrPlatformUnavailable = errors.New("sync: platform temporarily unavailable")
	ErrPlatformAuthFailed  = errors.New("sync: platform authentication failed")
	ErrInvalidResponse     = errors.New("sync: invalid platform response")

	// Entity errors
	ErrListingNotFound = errors.New("sync: listing not found")
	ErrOrderNotFound   = errors.New("sync: order not found")
	ErrUnknownSKU      = errors.New("sync: sku not present in catalog")

	// Order processing errors
	ErrInsufficientStock    = errors.New("sync: insufficient stock for order")
	ErrInvalidTransition    = errors.New("sync: invalid order status transition")
	ErrTerminalOrder        = errors.New("sync: order is in a terminal state")
	ErrDuplicateFulfillment = errors.New("sync: fulfillment already applied")

	// Inventory errors
	ErrNegativeQuantity = errors.New("sync: action would drive quantity below zero")
	ErrInventoryDrift   = errors.New("sync: unexplained inventory decrement")

	// Ingestion errors
	ErrInvalidPayload = errors.New("sync: malformed webhook payload")
	ErrEmptyScope     = errors.New("sync: reconciliation scope is empty")
)

// ---------------------------------------------------------------------------
// PlatformError
// ---------------------------------------------------------------------------

// PlatformError wraps a failure from a platform call with the platform,
// the logical operation, and its classification. Adapters classify raw
// transport/HTTP outcomes into this type; they never retry themselves.
type PlatformError struct {
	Platform PlatformCode
	Op       string
	Class    ErrorClass
	Err      error
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s %s [%s]: %v", e.Platform, e.Op, e.Class, e.Err)
}

// Unwrap returns the underlying error
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable platform failure.
func Transient(platform PlatformCode, op string, err error) *PlatformError {
	return &PlatformError{Platform: platform, Op: op, Class: ErrorClassTransient, Err: err}
}

// Permanent wraps err as a non-retryable platform failure.
func Permanent(platform PlatformCode, op string, err error) *PlatformError {
	return &PlatformError{Platform: platform, Op: op, Class: ErrorClassPermanent, Err: err}
}

// Classify returns the error class for err. Platform errors carry their own
// class; context deadline expiry is Transient per the timeout rule; anything
// unclassified is treated as Permanent so it is surfaced rather than retried
// blindly.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Class
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrPlatformUnavailable) {
		return ErrorClassTransient
	}
	if errors.Is(err, ErrInventoryDrift) {
		return ErrorClassConflict
	}
	return ErrorClassPermanent
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == ErrorClassTransient
}
