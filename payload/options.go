package payload

import (
	"errors"
	"fmt"
)

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	contentType string
	charset     string
	size        int64
	sizeSet     bool
}

// WithContentType overrides the kind's default Content-Type. For text
// kinds a charset parameter in contentType selects the encoding.
func WithContentType(contentType string) Option {
	return func(opts *options) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}

		opts.contentType = contentType

		return nil
	}
}

// WithCharset sets the charset text values are encoded with when the
// content type does not name one. Defaults to [DefaultCharset].
func WithCharset(charset string) Option {
	return func(opts *options) error {
		if _, err := LookupCharset(charset); err != nil {
			return err
		}

		opts.charset = charset

		return nil
	}
}

// WithSize declares the byte length of a plain stream, letting the
// transport send a Content-Length instead of chunked framing.
func WithSize(n int64) Option {
	return func(opts *options) error {
		if n < 0 {
			return fmt.Errorf("size[%d] must not be negative", n)
		}

		opts.size = n
		opts.sizeSet = true

		return nil
	}
}
