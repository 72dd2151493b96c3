package types

import "errors"

// ErrorCategory is the machine-readable failure classification carried
// by every structured result crossing the public API boundary.
type ErrorCategory string

const (
	// CategoryValidation covers bad proxy config, malformed account ids
	// and similar synchronous rejections. No state change occurred.
	CategoryValidation ErrorCategory = "validation"
	// CategoryTransient covers load timeouts, proxy connect failures
	// and disk contention. Retried with backoff before surfacing.
	CategoryTransient ErrorCategory = "transient"
	// CategoryResource covers concurrency ceiling and pool pressure.
	// Resolved internally via eviction, never surfaced to callers.
	CategoryResource ErrorCategory = "resource"
	// CategoryCorruption covers unreadable session data and isolation
	// verification failures. Routed to the recovery backup-reset path.
	CategoryCorruption ErrorCategory = "corruption"
	// CategoryAuth covers authentication failures. Non-transient:
	// never retried.
	CategoryAuth ErrorCategory = "auth"
)

// Result is the structured outcome for operations that must not throw
// across the API boundary.
type Result struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Category ErrorCategory `json:"category,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
}

// Error carries a category alongside the underlying cause so callers
// can branch on classification without string matching.
type Error struct {
	Category ErrorCategory
	Err      error
}

func (e *Error) Error() string { return string(e.Category) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Categorize wraps err with a machine category
func Categorize(cat ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: cat, Err: err}
}

// CategoryOf extracts the category from an error chain, defaulting to
// transient for unclassified failures.
func CategoryOf(err error) ErrorCategory {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryTransient
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, cat ErrorCategory) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Category == cat
}

// FailureResult converts an error into a structured result
func FailureResult(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	return Result{Success: false, Message: err.Error(), Category: CategoryOf(err)}
}
