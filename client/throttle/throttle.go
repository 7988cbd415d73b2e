package throttle

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/adamwoolhether/formwire/client/replay"
)

// NewRoundTripper returns an http.RoundTripper that throttles outbound
// attempts using a token bucket rate limiter. logFn lazily resolves the
// logger at request time, making option ordering irrelevant. A
// nil-returning logFn disables logging.
func NewRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cfg:     Config{RPS: rps, Burst: burst},
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	// Tokens only peeks, so a logged wait does not cost an extra token.
	if logger := t.logFn(); logger != nil && t.limiter.Tokens() < 1 {
		attrs := []any{"rate", t.cfg.RPS, "burst", t.cfg.Burst, "path", r.URL.Path}
		if c, ok := replay.FromContext(ctx); ok {
			attrs = append(attrs, "attempt", c.Attempts())
		}
		logger.Info("throttle tokens exhausted", attrs...)

		start := time.Now()
		defer func() {
			logger.Info("throttle wait complete", append(attrs, "waited", time.Since(start).String())...)
		}()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
