// Package apperr defines the typed failures returned by workflow operations.
// Anything that is not an *Error is an infrastructure failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule failure.
type Kind string

// Error kinds.
const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindInvalidState       Kind = "invalid_state"
	KindAccessDenied       Kind = "access_denied"
	KindInsufficientSupply Kind = "insufficient_supply"
	KindAllocation         Kind = "allocation"
	KindConflict           Kind = "conflict"
)

// Error is a business-rule failure with a human-readable message.
// Requested and Available are set only for KindInsufficientSupply.
type Error struct {
	Kind      Kind
	Message   string
	Requested int
	Available int
}

func (e *Error) Error() string {
	return e.Message
}

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input or a rejected business rule.
func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

// NotFound reports a missing referenced record.
func NotFound(what string, id int64) error {
	return newf(KindNotFound, "%s %d not found", what, id)
}

// InvalidState reports an operation attempted from a state that forbids it.
func InvalidState(format string, args ...any) error {
	return newf(KindInvalidState, format, args...)
}

// AccessDenied reports an operation outside the actor's role or base scope.
func AccessDenied(format string, args ...any) error {
	return newf(KindAccessDenied, format, args...)
}

// Allocation reports explicit asset ids that do not resolve to eligible assets.
func Allocation(format string, args ...any) error {
	return newf(KindAllocation, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

// InsufficientSupply reports an allocation that fell short of the request.
func InsufficientSupply(requested, available int) error {
	return &Error{
		Kind:      KindInsufficientSupply,
		Message:   fmt.Sprintf("insufficient supply: requested %d, available %d", requested, available),
		Requested: requested,
		Available: available,
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" for infrastructure failures.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
