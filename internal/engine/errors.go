package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/flexiq/internal/ir"
)

// Error represents an error detected while building or interpreting a request.
//
// Errors include:
//   - Unsupported operation: built-in link modification, custom link removal
//   - Date conversion: a date cannot be rendered in the wire format
//   - Unexpected response: a payload without the expected shape
//
// Error includes structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Resource identifies the affected resource, when known.
	Resource string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedOperation indicates an operation the service
	// contract does not allow.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeDateConversion indicates a date/time that cannot be rendered.
	ErrCodeDateConversion ErrorCode = "DATE_CONVERSION"

	// ErrCodeUnexpectedResponse indicates a response payload missing the
	// attributes an operation reads.
	ErrCodeUnexpectedResponse ErrorCode = "UNEXPECTED_RESPONSE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (resource=%s)", e.Code, e.Message, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnsupportedOperation returns true if the error is an unsupported operation error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedOperation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeUnsupportedOperation
	}
	return false
}

// IsDateConversion returns true if the error is a date conversion error.
func IsDateConversion(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeDateConversion
	}
	return false
}

// NewUnsupportedOperationError creates an Error for an operation the
// service does not allow.
func NewUnsupportedOperationError(resource, message string) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedOperation,
		Message:  message,
		Resource: resource,
	}
}

// NewDateConversionError creates an Error for a value that cannot be
// rendered as field's wire type.
func NewDateConversionError(field string, fieldType string, reason string) *Error {
	return &Error{
		Code:    ErrCodeDateConversion,
		Message: fmt.Sprintf("cannot convert %s to %s: %s", field, fieldType, reason),
		Details: map[string]string{
			"field": field,
			"type":  fieldType,
		},
	}
}

// newUnexpectedResponseError reports a missing response attribute.
func newUnexpectedResponseError(resource, attribute string) *Error {
	return &Error{
		Code:     ErrCodeUnexpectedResponse,
		Message:  fmt.Sprintf("response has no usable %q", attribute),
		Resource: resource,
		Details: map[string]string{
			"attribute": attribute,
		},
	}
}

// RemoteError is returned when the server answers with a status other
// than 200 or 201. Payload is the decoded response with the envelope
// removed.
type RemoteError struct {
	Status  int
	Method  string
	URL     string
	Payload ir.Value
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if msg := remoteMessage(e.Payload); msg != "" {
		return fmt.Sprintf("remote error: HTTP %d on %s %s: %s", e.Status, e.Method, e.URL, msg)
	}
	return fmt.Sprintf("remote error: HTTP %d on %s %s", e.Status, e.Method, e.URL)
}

// IsRemoteError returns true if err is a RemoteError, and the status.
func IsRemoteError(err error) (int, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status, true
	}
	return 0, false
}

// remoteMessage pulls the first human-readable message out of an error
// payload: either "message" or the first results[].errors[].message.
func remoteMessage(payload ir.Value) string {
	obj, ok := payload.(ir.Object)
	if !ok {
		if s, ok := payload.(ir.String); ok {
			return string(s)
		}
		return ""
	}
	if msg, ok := obj.Text("message"); ok {
		return msg
	}
	for _, r := range obj.List("results") {
		result, ok := r.(ir.Object)
		if !ok {
			continue
		}
		for _, e := range result.List("errors") {
			if errObj, ok := e.(ir.Object); ok {
				if msg, ok := errObj.Text("message"); ok {
					return msg
				}
			}
		}
	}
	return ""
}
