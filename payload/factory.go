package payload

import (
	"fmt"
	"io"
	"os"
)

// Classify reports which Kind a value would be wrapped as.
func Classify(value any) Kind {
	switch v := value.(type) {
	case Payload:
		return v.Kind()
	case string:
		return KindText
	case []byte:
		return KindBytes
	case *os.File:
		if v == nil {
			return KindUnsupported
		}
		return KindFile
	case TextStream:
		if v.R == nil {
			return KindUnsupported
		}
		return KindTextStream
	case io.ReadSeeker:
		return KindSeekableStream
	case io.Reader:
		return KindStream
	default:
		return KindUnsupported
	}
}

// New wraps value in the Payload implementation for its Kind. A value that
// is already a Payload is returned unchanged.
func New(value any, optFns ...Option) (Payload, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying payload option: %w", err)
		}
	}

	if p, ok := value.(Payload); ok {
		return p, nil
	}

	switch kind := Classify(value); kind {
	case KindText:
		p, err := newText(value.(string), opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindBytes:
		return newBytes(value.([]byte), opts), nil
	case KindFile:
		f := value.(*os.File)
		p, err := newFile(f, opts)
		if err != nil {
			// Pipes and character devices cannot seek; they still stream once.
			return newStream(f, opts), nil
		}
		return p, nil
	case KindTextStream:
		p, err := newTextStream(value.(TextStream), opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindSeekableStream:
		p, err := newSeekableStream(value.(io.ReadSeeker), opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindStream:
		return newStream(value.(io.Reader), opts), nil
	case KindUnsupported, KindMultipart:
		return nil, &Error{Detail: fmt.Sprintf("%T", value), Err: ErrUnsupportedValue}
	default:
		return nil, &Error{Detail: fmt.Sprintf("%T (kind %s)", value, kind), Err: ErrUnsupportedValue}
	}
}
