package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and machine-readable code for a failure
// raised below the handler layer.
type Error struct {
	Status    int
	Code      string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func Forbidden(code string, err error) *Error {
	return New(http.StatusForbidden, code, err)
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func Unprocessable(code string, err error) *Error {
	return New(http.StatusUnprocessableEntity, code, err)
}

func Unauthorized(code string, err error) *Error {
	return New(http.StatusUnauthorized, code, err)
}

// Conflict marks the failure as safe for the caller to retry.
func Conflict(code string, err error) *Error {
	e := New(http.StatusConflict, code, err)
	e.Retryable = true
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}
