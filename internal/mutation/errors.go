package mutation

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrParseFailed is wrapped by errors for backend output that is not a JSON object.
var ErrParseFailed = errors.New("backend output is not a JSON object")

// Code classifies a mutation failure.
type Code int

const (
	Unknown Code = iota
	InvalidArgument
	ParseFailed
	Unavailable
)

func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "invalid_argument"
	case ParseFailed:
		return "parse_failed"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// HTTPCode returns the status the endpoint responds with for c.
func (c Code) HTTPCode() int {
	switch c {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by Service.Mutate. Msg is safe to show to callers;
// Err is for logs only.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

// NewError creates an Error.
func NewError(code Code, msg string, underlying error) *Error {
	return &Error{Code: code, Msg: msg, Err: underlying}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var merr *Error
	if errors.As(err, &merr) {
		return merr.Code == code
	}
	return false
}
