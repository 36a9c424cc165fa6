package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so the HTTP layer can pick a status page.
type Kind string

const (
	KindUpload   Kind = "upload"
	KindParse    Kind = "parse"
	KindProvider Kind = "provider"
	KindShape    Kind = "shape"
	KindConfig   Kind = "config"
	KindNotFound Kind = "not_found"
)

// Error is the typed error carried through the review pipeline.
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for provider failures (0 when unknown).
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrParse) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrUpload   = &Error{Kind: KindUpload}
	ErrParse    = &Error{Kind: KindParse}
	ErrProvider = &Error{Kind: KindProvider}
	ErrShape    = &Error{Kind: KindShape}
	ErrConfig   = &Error{Kind: KindConfig}
	ErrNotFound = &Error{Kind: KindNotFound}
)

func Upload(format string, args ...interface{}) error {
	return &Error{Kind: KindUpload, Message: fmt.Sprintf(format, args...)}
}

func Parse(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...), Err: err}
}

func Provider(status int, err error, format string, args ...interface{}) error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...), Status: status, Err: err}
}

func Shape(format string, args ...interface{}) error {
	return &Error{Kind: KindShape, Message: fmt.Sprintf(format, args...)}
}

func Config(format string, args ...interface{}) error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Status maps an error to the HTTP status class shown to the user.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindUpload:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConfig:
		return http.StatusServiceUnavailable
	case KindProvider:
		switch e.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
