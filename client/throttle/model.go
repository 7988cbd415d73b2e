package throttle

import (
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's requests per second and burst rate.
// Every attempt of a request counts, redirects included.
type Config struct {
	RPS   int
	Burst int
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound attempts.
type throttle struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logFn   func() *slog.Logger
}
