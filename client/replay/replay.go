package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/adamwoolhether/formwire/payload"
)

// Generator produces a fresh body on every call.
type Generator interface {
	Generate() (payload.Payload, error)
}

// Coordinator owns the body of one logical request across redirects.
// It hands net/http a body per attempt and decides whether a further
// attempt can be served.
type Coordinator struct {
	ctx  context.Context
	gen  Generator
	bare payload.Payload
	opts options

	mu       sync.Mutex
	state    State
	attempts int
	current  *body
	err      error
}

// FromGenerator returns a Coordinator that regenerates the body from g for
// every attempt.
func FromGenerator(ctx context.Context, g Generator, optFns ...Option) (*Coordinator, error) {
	if g == nil {
		return nil, errors.New("generator must not be nil")
	}

	return newCoordinator(ctx, g, nil, optFns)
}

// FromPayload returns a Coordinator for a single prebuilt payload. The
// payload can be resent only if it is seekable.
func FromPayload(ctx context.Context, p payload.Payload, optFns ...Option) (*Coordinator, error) {
	if p == nil {
		return nil, errors.New("payload must not be nil")
	}

	return newCoordinator(ctx, nil, p, optFns)
}

func newCoordinator(ctx context.Context, g Generator, p payload.Payload, optFns []Option) (*Coordinator, error) {
	opts := options{logger: slog.Default()}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying replay option: %w", err)
		}
	}

	return &Coordinator{
		ctx:  ctx,
		gen:  g,
		bare: p,
		opts: opts,
	}, nil
}

// Attach sets the first attempt's body on a copy of req and arranges for
// net/http to call [Coordinator.Next] when the body must be sent again.
// The Coordinator is reachable from the returned request's context.
func (c *Coordinator) Attach(req *http.Request) (*http.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInit {
		return nil, ErrAttached
	}

	p := c.bare
	if c.gen != nil {
		var err error
		if p, err = c.gen.Generate(); err != nil {
			c.fail(err)
			return nil, fmt.Errorf("generating body: %w", err)
		}
	}

	req = req.WithContext(NewContext(req.Context(), c))
	req.Body = c.open(p)
	req.ContentLength = p.Len()
	req.GetBody = c.Next

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get("Content-Type") == "" {
		if ct := p.ContentType(); ct != "" {
			req.Header.Set("Content-Type", ct)
		}
	}

	return req, nil
}

// Next returns the body for another attempt. It waits for the previous
// attempt to release its sources, then regenerates, rewinds or refuses.
// A refusal is a [ConnectionError] carrying a [NonSeekableError].
func (c *Coordinator) Next() (io.ReadCloser, error) {
	c.mu.Lock()
	prev := c.current
	c.mu.Unlock()

	if prev != nil {
		prev.release()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == StateInit:
		return nil, errors.New("body requested before attach")
	case c.state.terminal():
		if c.err != nil {
			return nil, c.err
		}
		return nil, ErrFinished
	}

	c.state = StateReplaying
	c.opts.logger.Debug("replaying request body", "attempt", c.attempts+1)

	var p payload.Payload
	switch {
	case c.gen != nil:
		var err error
		if p, err = c.gen.Generate(); err != nil {
			c.fail(err)
			return nil, fmt.Errorf("regenerating body: %w", err)
		}

	case c.bare.Seekable():
		if r, ok := c.bare.(payload.Rewinder); ok {
			if err := r.Rewind(); err != nil {
				c.fail(err)
				return nil, fmt.Errorf("rewinding body: %w", err)
			}
		}
		p = c.bare

	default:
		err := &ConnectionError{
			Op:  "replay",
			Err: &NonSeekableError{Kind: c.bare.Kind(), Attempt: c.attempts + 1},
		}
		c.fail(err)
		return nil, err
	}

	return c.open(p), nil
}

// Finish records the outcome of the request. A nil err marks success.
// It returns once the last attempt's writer has let go of the sources.
// Calls after the first are ignored.
func (c *Coordinator) Finish(err error) {
	c.mu.Lock()
	if c.state.terminal() {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.fail(err)
	} else {
		c.state = StateSucceeded
	}
	current := c.current
	c.mu.Unlock()

	if current != nil {
		current.release()
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Attempts returns how many bodies have been handed out.
func (c *Coordinator) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

// Err returns the error that failed the request, if any.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// open must be called with mu held.
func (c *Coordinator) open(p payload.Payload) *body {
	c.attempts++
	c.state = StateSent
	c.current = newBody(c.ctx, p, c.attempts, c.opts)

	return c.current
}

// fail must be called with mu held.
func (c *Coordinator) fail(err error) {
	c.state = StateFailed
	c.err = err
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Coordinator) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the Coordinator stored in ctx, if any.
func FromContext(ctx context.Context) (*Coordinator, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Coordinator)
	return c, ok
}
