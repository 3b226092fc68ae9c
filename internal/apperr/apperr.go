// Package apperr defines the error taxonomy shared by the service layer, the
// authorization gate and the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the HTTP boundary.
type Kind int

const (
	Internal Kind = iota
	InvalidPayload
	Conflict
	NotFound
	Unauthorized
	Forbidden
	PermissionDenied
)

const (
	MsgInvalidPayload   = "Invalid payload."
	MsgTryAgain         = "Try again."
	MsgUserExists       = "User already exists."
	MsgUserNotFound     = "User does not exist."
	MsgProvideToken     = "Provide a valid token."
	MsgContactUs        = "Something went wrong. Please contact us."
	MsgPermissionDenied = "You do not have permission to do that."
)

func (k Kind) String() string {
	switch k {
	case InvalidPayload:
		return "invalid_payload"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "internal"
	}
}

// Status maps the kind to its HTTP status code. PermissionDenied answers 401
// rather than 403 to stay compatible with existing clients.
func (k Kind) Status() int {
	switch k {
	case InvalidPayload, Conflict:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized, PermissionDenied:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a user-facing message. Err keeps the
// underlying cause for logging and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// MessageOf returns the user-facing message for err. Unclassified errors
// never leak their text.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return MsgTryAgain
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
