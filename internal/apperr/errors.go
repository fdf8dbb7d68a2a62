package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation for the UI layer.
type Kind string

const (
	KindConnectivity Kind = "connectivity" // no network / no response
	KindServer       Kind = "server"       // HTTP 5xx
	KindRequest      Kind = "request"      // HTTP 4xx other than 401
	KindAuth         Kind = "auth"         // HTTP 401, credentials cleared
)

// Error is the normalized failure shape surfaced by the API client.
type Error struct {
	Kind    Kind
	Message string // user-facing; server-provided when available
	Status  int    // HTTP status, 0 when no response was received
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of err, falling back to
// err.Error() for foreign errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func IsAuth(err error) bool {
	return KindOf(err) == KindAuth
}
