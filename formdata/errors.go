package formdata

import (
	"errors"
	"fmt"

	"github.com/adamwoolhether/formwire/payload"
)

var (
	// ErrInvalidParameter is returned when a form option, a field
	// parameter or the fields argument has the wrong shape.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrSealed is returned when a field is added after the form was
	// generated.
	ErrSealed = errors.New("form already generated")
	// ErrUnsupportedValue is returned by [Form.Generate] for a field value
	// that matches none of the payload kinds.
	ErrUnsupportedValue = payload.ErrUnsupportedValue
)

// Error describes a failure tied to a form field or option.
type Error struct {
	Field  string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Field != "" {
		return fmt.Sprintf("field %q: %s", e.Field, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidParam(field, format string, args ...any) *Error {
	return &Error{
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
		Err:    ErrInvalidParameter,
	}
}
