package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/adamwoolhether/formwire/payload"
)

var errReleased = errors.New("body released for the next attempt")

// body streams one attempt's payload through a pipe. The payload is
// written by a single goroutine started on the first Read, so sources are
// not touched until the transport asks for bytes.
type body struct {
	ctx      context.Context
	p        payload.Payload
	pr       *io.PipeReader
	pw       *io.PipeWriter
	logger   *slog.Logger
	attempt  int
	progress bool

	start sync.Once
	done  chan struct{}
}

func newBody(ctx context.Context, p payload.Payload, attempt int, opts options) *body {
	pr, pw := io.Pipe()

	return &body{
		ctx:      ctx,
		p:        p,
		pr:       pr,
		pw:       pw,
		logger:   opts.logger,
		attempt:  attempt,
		progress: opts.progress,
		done:     make(chan struct{}),
	}
}

func (b *body) Read(p []byte) (int, error) {
	b.start.Do(func() { go b.write() })
	return b.pr.Read(p)
}

func (b *body) Close() error {
	return b.pr.Close()
}

func (b *body) write() {
	defer close(b.done)

	var w io.Writer = &ctxWriter{ctx: b.ctx, w: b.pw}
	if b.progress {
		w = &progressWriter{
			w:         w,
			logger:    b.logger,
			attempt:   b.attempt,
			total:     b.p.Len(),
			startTime: time.Now(),
		}
	}

	_, err := b.p.WriteTo(w)
	b.pw.CloseWithError(err)
}

// release stops the attempt and waits until its writer no longer holds
// the payload's sources.
func (b *body) release() {
	b.start.Do(func() { close(b.done) })
	b.pr.CloseWithError(errReleased)
	<-b.done
}
