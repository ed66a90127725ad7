package xerr

import (
	"errors"
	"fmt"
)

// CodeError is the error type surfaced to API callers. Code doubles as the
// HTTP status of the response.
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("Code: %d, Message: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is matches another CodeError by code, so errors.Is(err, xerr.ErrNotFound)
// holds for any 404.
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a CodeError.
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Wrap creates a CodeError that keeps cause for logging and errors.Is.
func Wrap(code int, msg string, cause error) *CodeError {
	return &CodeError{Code: code, Message: msg, cause: cause}
}

const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrSuccess         = New(OK, "Success")
	ErrServerError     = New(InternalServerError, "internal server error")
	ErrParam           = New(BadRequest, "invalid parameters")
	ErrUnauthenticated = New(Unauthorized, "unauthenticated")
	ErrForbidden       = New(Forbidden, "forbidden")
	ErrNotFound        = New(NotFound, "not found")
	ErrTransientStore  = New(ServiceUnavailable, "storage temporarily unavailable")
)

// CodeOf returns the code carried by err, or InternalServerError when err is
// not a CodeError. A nil error yields OK.
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalServerError
}

// IsTransient reports whether err is a TransientStoreError.
func IsTransient(err error) bool {
	return CodeOf(err) == ServiceUnavailable
}
