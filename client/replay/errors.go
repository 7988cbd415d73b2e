package replay

import (
	"errors"
	"fmt"

	"github.com/adamwoolhether/formwire/payload"
)

var (
	// ErrNonSeekable is matched by [NonSeekableError] via errors.Is.
	ErrNonSeekable = errors.New("non-seekable payload")
	// ErrAttached is returned when a Coordinator is attached twice.
	ErrAttached = errors.New("body already attached")
	// ErrFinished is returned when a body is requested after Finish.
	ErrFinished = errors.New("request already finished")
)

// NonSeekableError identifies a body that was already streamed and
// cannot be produced again.
type NonSeekableError struct {
	Kind    payload.Kind
	Attempt int
}

func (e *NonSeekableError) Error() string {
	return fmt.Sprintf("non-seekable payload (%s) cannot be resent for attempt %d", e.Kind, e.Attempt)
}

func (e *NonSeekableError) Is(target error) bool {
	return target == ErrNonSeekable
}

// ConnectionError is a connection-level failure. It is not retriable;
// Err carries the cause.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnection reports whether err carries a [ConnectionError].
func IsConnection(err error) bool {
	var cerr *ConnectionError
	return errors.As(err, &cerr)
}
