package formdata

import (
	"github.com/adamwoolhether/formwire/payload"
)

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	Boundary    string `json:"boundary"     validate:"omitempty,boundary"`
	Charset     string `json:"charset"      validate:"required,charset"`
	QuoteFields bool   `json:"quote_fields"`
}

func defaultOptions() options {
	return options{
		Charset:     payload.DefaultCharset,
		QuoteFields: true,
	}
}

// WithBoundary fixes the multipart boundary instead of generating one.
func WithBoundary(boundary string) Option {
	return func(opts *options) error {
		opts.Boundary = boundary
		return nil
	}
}

// WithCharset sets the charset used for text values and header
// parameters. Defaults to utf-8.
func WithCharset(charset string) Option {
	return func(opts *options) error {
		opts.Charset = charset
		return nil
	}
}

// WithQuoteFields toggles backslash-escaping of field names and
// filenames. Enabled by default.
func WithQuoteFields(enabled bool) Option {
	return func(opts *options) error {
		opts.QuoteFields = enabled
		return nil
	}
}
