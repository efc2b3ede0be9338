// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes and wire codes.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data (missing reason, out-of-range rate).
	KindValidation
	// KindInvalidTransition indicates an operation attempted from a state
	// that does not permit it.
	KindInvalidTransition
	// KindIneligible indicates the target of an operation cannot be selected
	// (e.g., assignment to a blocked technician).
	KindIneligible
	// KindMissingDependency indicates a required reference is absent
	// (e.g., verifying a payment without an assigned technician).
	KindMissingDependency
	// KindConflict indicates a lost optimistic-concurrency race; the caller
	// must re-fetch current state before retrying.
	KindConflict
	// KindForbidden indicates the action is not allowed for the actor.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Wire codes surfaced in error responses. Clients branch on these, so they
// are part of the boundary contract.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeIneligibleTechnician = "INELIGIBLE_TECHNICIAN"
	CodeMissingTechnician    = "MISSING_TECHNICIAN"
	CodeConflict             = "CONFLICT"
	CodeNotFound             = "NOT_FOUND"
)

// Error is a domain error with a typed Kind for HTTP mapping and a stable
// wire Code for client branching.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindIneligible, KindMissingDependency:
		return http.StatusUnprocessableEntity
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for the dispatch error taxonomy.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

// Validation creates a validation error. Validation failures are surfaced
// before any mutation is attempted.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// InvalidTransition creates an error for an operation attempted from a state
// that does not permit it. Never retried automatically.
func InvalidTransition(message string) *Error {
	return &Error{Kind: KindInvalidTransition, Code: CodeInvalidTransition, Message: message}
}

// IneligibleTechnician creates an error for an assignment targeting a
// technician that cannot be selected.
func IneligibleTechnician(message string) *Error {
	return &Error{Kind: KindIneligible, Code: CodeIneligibleTechnician, Message: message}
}

// MissingTechnician creates an error for operations that require an assigned
// technician reference that is absent.
func MissingTechnician(message string) *Error {
	return &Error{Kind: KindMissingDependency, Code: CodeMissingTechnician, Message: message}
}

// Conflict creates a lost-optimistic-race error. The caller must re-fetch
// current state; the stale local view must not be reapplied blindly.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: message}
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
