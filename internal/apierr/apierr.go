// Package apierr defines the typed error taxonomy shared by every service
// package and its mapping onto HTTP status codes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error kinds exposed at the API boundary.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindGone         Kind = "gone"
	KindInternal     Kind = "internal"
)

// httpStatus maps each Kind to its HTTP status code.
var httpStatus = map[Kind]int{
	KindValidation:   http.StatusUnprocessableEntity,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindGone:         http.StatusGone,
	KindInternal:     http.StatusInternalServerError,
}

// Error is the typed error value every service/repository layer returns at
// its boundary. Handlers translate it into the JSON envelope; they never
// inspect the wrapped cause directly.
type Error struct {
	Kind    Kind
	Message string
	Details []Detail
	cause   error
}

// Detail is a single field-level validation failure.
type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus returns the HTTP status code for this error's kind.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func newErr(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

func Validation(msg string, details ...Detail) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func Unauthorized(msg string) *Error { return newErr(KindUnauthorized, msg) }

func Forbidden(msg string) *Error { return newErr(KindForbidden, msg) }

func NotFound(msg string) *Error { return newErr(KindNotFound, msg) }

func Conflict(msg string) *Error { return newErr(KindConflict, msg) }

func Gone(msg string) *Error { return newErr(KindGone, msg) }

// Internal wraps a dependency fault. The cause is logged server-side but
// never rendered to the client.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == k
	}
	return false
}

// As extracts an *Error from err, following the wrap chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
