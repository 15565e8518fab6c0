package response

import (
	"errors"
)

// Error is a domain failure that already knows its HTTP status and machine readable tag.
type Error struct {
	Code int
	Tag  string
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

func NewTaggedError(code int, tag string, err string) error {
	return &Error{Code: code, Tag: tag, Err: errors.New(err)}
}

// Wrap attaches status and tag to an existing error, keeping it reachable through errors.Is.
func Wrap(code int, tag string, err error) error {
	return &Error{Code: code, Tag: tag, Err: err}
}
