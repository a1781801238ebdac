// Package apperr defines the application error taxonomy shared by the
// ingestion pipeline and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for HTTP translation.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindNotFound
	KindUpstream
	KindStore
	KindConfig
)

// Error is a typed application error. Status is only set for upstream
// errors that carry the provider's HTTP status code.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to the response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		if e.Status != 0 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Upstream wraps a provider fetch failure. status may be zero when the
// failure was a transport fault rather than a non-2xx response.
func Upstream(msg string, status int, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Status: status, Err: err}
}

func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Message: msg, Err: err}
}

func Config(msg string) *Error {
	return &Error{Kind: KindConfig, Message: msg}
}

// KindOf returns the kind of err if it is an application error,
// and KindStore otherwise (unknown failures are treated as internal).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}
