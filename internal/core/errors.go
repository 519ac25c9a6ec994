package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers
// test with errors.Is and the web layer picks a status code from the kind.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// Error is a business-rule failure with a catalogue code. Message overrides
// the catalogue text when set.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := messages[e.Code]; ok {
		return msg.Message
	}
	return fmt.Sprintf("%v (%s)", e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.Kind }

func invalid(code string) *Error      { return &Error{Kind: ErrInvalidInput, Code: code} }
func notFound(code string) *Error     { return &Error{Kind: ErrNotFound, Code: code} }
func unauthorized(code string) *Error { return &Error{Kind: ErrUnauthorized, Code: code} }
func forbidden(code string) *Error    { return &Error{Kind: ErrForbidden, Code: code} }

func invalidf(code, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidInput, Code: code, Message: fmt.Sprintf(format, args...)}
}
