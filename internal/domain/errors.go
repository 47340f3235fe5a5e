package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every rejection the engine can produce so the presentation
// layer can map each one to a specific message and status.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindClosed        Kind = "closed"
	KindBidTooLow     Kind = "bid_too_low"
	KindInvalidAmount Kind = "invalid_amount"
	// KindConflict marks a serialization failure surfaced by a store. The engine
	// serializes admissions with per-auction locks and never retries on its own,
	// so callers treat it as transient and safe to retry.
	KindConflict Kind = "conflict"
	KindStorage  Kind = "storage"
)

// Error is the tagged outcome type for all engine rejections.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two engine errors by kind, so errors.Is(err, domain.ErrOfKind(k))
// style comparisons work without inspecting reasons.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// ErrOfKind returns a bare marker error for errors.Is comparisons.
func ErrOfKind(k Kind) error { return &Error{Kind: k} }

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Reason: fmt.Sprintf(format, args...)}
}

func Closedf(format string, args ...interface{}) error {
	return &Error{Kind: KindClosed, Reason: fmt.Sprintf(format, args...)}
}

func BidTooLowf(format string, args ...interface{}) error {
	return &Error{Kind: KindBidTooLow, Reason: fmt.Sprintf(format, args...)}
}

func InvalidAmountf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidAmount, Reason: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

// StorageErr wraps an infrastructure failure; the cause is preserved for logs
// while callers only see the kind and reason.
func StorageErr(cause error, reason string) error {
	return &Error{Kind: KindStorage, Reason: reason, cause: cause}
}

// KindOf extracts the kind of an engine error, or KindStorage for anything
// that escaped classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// ReasonOf extracts the human-readable reason, falling back to the raw error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
