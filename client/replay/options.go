package replay

import (
	"errors"
	"log/slog"
)

// Option is a functional option for [FromGenerator] and [FromPayload].
type Option func(*options) error

type options struct {
	logger   *slog.Logger
	progress bool
}

// WithLogger sets the logger used for replay and progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}

// WithProgress enables periodic upload progress logging.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}
