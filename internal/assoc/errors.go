package assoc

import (
	"errors"
	"fmt"

	"github.com/roach88/flexiq/internal/queryir"
)

// Error is returned when an association descriptor cannot be planned or
// extracted. Planning errors are fatal for the query; they are never
// retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Property is the association's property name.
	Property string

	// Kind is the offending relationship type.
	Kind queryir.Kind

	// JoinKey is the offending many-to-many join key.
	JoinKey string
}

// ErrorCode categorizes association errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedKind indicates a relationship type outside
	// 1:1, 1:n, n:1 and m:n.
	ErrCodeUnsupportedKind ErrorCode = "UNSUPPORTED_ASSOCIATION_KIND"

	// ErrCodeUnexpectedJoinKey indicates a many-to-many join key other than
	// "vazby" or "uzivatelske-vazby".
	ErrCodeUnexpectedJoinKey ErrorCode = "UNEXPECTED_ASSOCIATION_JOIN_KEY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s: %s (property=%s)", e.Code, e.Message, e.Property)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnsupportedKind returns true if err is an unsupported kind error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedKind(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeUnsupportedKind
	}
	return false
}

// IsUnexpectedJoinKey returns true if err is an unexpected join key error.
func IsUnexpectedJoinKey(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeUnexpectedJoinKey
	}
	return false
}

// NewUnsupportedKindError creates an Error for an unknown relationship type.
func NewUnsupportedKindError(a queryir.Association) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedKind,
		Message:  fmt.Sprintf("unsupported association %q", a.Kind),
		Property: a.PropertyName,
		Kind:     a.Kind,
	}
}

// NewUnexpectedJoinKeyError creates an Error for an unknown m:n mechanism.
func NewUnexpectedJoinKeyError(a queryir.Association) *Error {
	return &Error{
		Code:     ErrCodeUnexpectedJoinKey,
		Message:  fmt.Sprintf("unexpected association key %q on m:n", a.JoinKey),
		Property: a.PropertyName,
		Kind:     a.Kind,
		JoinKey:  a.JoinKey,
	}
}
