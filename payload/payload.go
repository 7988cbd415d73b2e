package payload

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnsupportedValue is returned by [New] when a value matches none of
	// the recognised kinds.
	ErrUnsupportedValue = errors.New("unsupported payload value")
	// ErrConsumed is returned when a non-seekable payload is written twice.
	ErrConsumed = errors.New("payload already consumed")
	// ErrUnknownCharset is returned when a charset name cannot be resolved.
	ErrUnknownCharset = errors.New("unknown charset")
)

// Kind identifies the closed set of values a Payload can wrap.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindBytes
	KindFile
	KindTextStream
	KindSeekableStream
	KindStream
	KindMultipart
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindFile:
		return "file"
	case KindTextStream:
		return "text-stream"
	case KindSeekableStream:
		return "seekable-stream"
	case KindStream:
		return "stream"
	case KindMultipart:
		return "multipart"
	default:
		return "unsupported"
	}
}

// Payload is a streamable request body.
//
// Len reports the number of bytes WriteTo will produce, or -1 when it
// cannot be known up front. A payload that is not Seekable permits a
// single WriteTo; later calls fail with [ErrConsumed].
type Payload interface {
	Kind() Kind
	Len() int64
	ContentType() string
	Seekable() bool
	WriteTo(w io.Writer) (int64, error)
}

// Rewinder is implemented by seekable payloads. Rewind resets the
// underlying source to the offset it had when the payload was built.
type Rewinder interface {
	Rewind() error
}

// Filenamer is implemented by payloads that can infer a filename from
// their source, such as open files.
type Filenamer interface {
	Filename() string
}

// Error wraps a sentinel error with the offending value's detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
