package replay_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/formwire/client/replay"
	"github.com/adamwoolhether/formwire/formdata"
	"github.com/adamwoolhether/formwire/payload"
)

func TestCoordinator_Generator(t *testing.T) {
	form, err := formdata.New(formdata.WithBoundary("b"))
	if err != nil {
		t.Fatalf("creating form: %v", err)
	}
	if err := form.AddField("file", strings.NewReader("contents"), formdata.WithFilename("f.txt")); err != nil {
		t.Fatalf("adding field: %v", err)
	}

	c, err := replay.FromGenerator(t.Context(), form)
	if err != nil {
		t.Fatalf("creating coordinator: %v", err)
	}
	if c.State() != replay.StateInit {
		t.Fatalf("exp init state, got %s", c.State())
	}

	req := newRequest(t)
	req, err = c.Attach(req)
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}

	if exp := "multipart/form-data; boundary=b"; req.Header.Get("Content-Type") != exp {
		t.Errorf("exp content type %q, got %q", exp, req.Header.Get("Content-Type"))
	}
	if got, ok := replay.FromContext(req.Context()); !ok || got != c {
		t.Error("exp coordinator in request context")
	}

	first := readAll(t, req.Body)
	if int64(len(first)) != req.ContentLength {
		t.Errorf("exp content length %d, got %d bytes", req.ContentLength, len(first))
	}

	next, err := req.GetBody()
	if err != nil {
		t.Fatalf("getting next body: %v", err)
	}
	second := readAll(t, next)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replayed body differs (-first +second):\n%s", diff)
	}
	if c.Attempts() != 2 || c.State() != replay.StateSent {
		t.Errorf("exp 2 attempts in sent state, got %d in %s", c.Attempts(), c.State())
	}

	c.Finish(nil)
	if c.State() != replay.StateSucceeded {
		t.Errorf("exp succeeded, got %s", c.State())
	}
	if _, err := req.GetBody(); !errors.Is(err, replay.ErrFinished) {
		t.Errorf("exp ErrFinished after finish, got %v", err)
	}
}

func TestCoordinator_SeekablePayload(t *testing.T) {
	p, err := payload.New(bytes.NewReader([]byte("seekable body")))
	if err != nil {
		t.Fatalf("creating payload: %v", err)
	}

	c, err := replay.FromPayload(t.Context(), p)
	if err != nil {
		t.Fatalf("creating coordinator: %v", err)
	}

	req, err := c.Attach(newRequest(t))
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}

	// Abandon the first attempt halfway.
	buf := make([]byte, 4)
	if _, err := io.ReadFull(req.Body, buf); err != nil {
		t.Fatalf("reading: %v", err)
	}

	next, err := req.GetBody()
	if err != nil {
		t.Fatalf("getting next body: %v", err)
	}
	if got := string(readAll(t, next)); got != "seekable body" {
		t.Errorf("exp full body on replay, got %q", got)
	}
}

func TestCoordinator_NonSeekable(t *testing.T) {
	readers := map[string]io.Reader{
		"one byte": iotest.OneByteReader(strings.NewReader("stream body")),
		"half":     iotest.HalfReader(strings.NewReader("stream body")),
	}

	for name, r := range readers {
		t.Run(name, func(t *testing.T) {
			p, err := payload.New(r)
			if err != nil {
				t.Fatalf("creating payload: %v", err)
			}

			c, err := replay.FromPayload(t.Context(), p)
			if err != nil {
				t.Fatalf("creating coordinator: %v", err)
			}

			req, err := c.Attach(newRequest(t))
			if err != nil {
				t.Fatalf("attaching: %v", err)
			}
			if req.ContentLength != -1 {
				t.Errorf("exp unknown length, got %d", req.ContentLength)
			}
			readAll(t, req.Body)

			_, err = req.GetBody()
			if !replay.IsConnection(err) {
				t.Fatalf("exp connection error, got %v", err)
			}
			if !errors.Is(err, replay.ErrNonSeekable) {
				t.Errorf("exp ErrNonSeekable, got %v", err)
			}

			var cerr *replay.ConnectionError
			if errors.As(err, &cerr) && !strings.HasPrefix(cerr.Err.Error(), "non-seekable payload") {
				t.Errorf("exp cause to start with non-seekable payload, got %q", cerr.Err.Error())
			}

			if c.State() != replay.StateFailed {
				t.Errorf("exp failed state, got %s", c.State())
			}

			// Finish does not override the refusal.
			c.Finish(nil)
			if c.State() != replay.StateFailed || !errors.Is(c.Err(), replay.ErrNonSeekable) {
				t.Errorf("exp failure to stick, got %s: %v", c.State(), c.Err())
			}
		})
	}
}

func TestCoordinator_AttachTwice(t *testing.T) {
	p, _ := payload.New("x")
	c, err := replay.FromPayload(t.Context(), p)
	if err != nil {
		t.Fatalf("creating coordinator: %v", err)
	}

	if _, err := c.Attach(newRequest(t)); err != nil {
		t.Fatalf("attaching: %v", err)
	}
	if _, err := c.Attach(newRequest(t)); !errors.Is(err, replay.ErrAttached) {
		t.Fatalf("exp ErrAttached, got %v", err)
	}
}

func TestCoordinator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())

	p, _ := payload.New(bytes.NewReader(bytes.Repeat([]byte("x"), 1<<16)))
	c, err := replay.FromPayload(ctx, p)
	if err != nil {
		t.Fatalf("creating coordinator: %v", err)
	}

	req, err := c.Attach(newRequest(t))
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}

	cancel()

	if _, err := io.ReadAll(req.Body); !errors.Is(err, context.Canceled) {
		t.Fatalf("exp context.Canceled, got %v", err)
	}
}

// countingReader counts reads of its source.
type countingReader struct {
	r     io.Reader
	reads atomic.Int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	cr.reads.Add(1)
	return cr.r.Read(p)
}

func TestCoordinator_FinishReleasesSource(t *testing.T) {
	src := &countingReader{r: iotest.OneByteReader(bytes.NewReader(bytes.Repeat([]byte("x"), 1<<16)))}

	p, err := payload.New(src)
	if err != nil {
		t.Fatalf("creating payload: %v", err)
	}

	c, err := replay.FromPayload(t.Context(), p)
	if err != nil {
		t.Fatalf("creating coordinator: %v", err)
	}

	req, err := c.Attach(newRequest(t))
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}

	// Abandon the body after a few bytes, as a transport does on an early response.
	if _, err := io.ReadFull(req.Body, make([]byte, 8)); err != nil {
		t.Fatalf("reading body: %v", err)
	}

	c.Finish(nil)
	reads := src.reads.Load()

	time.Sleep(20 * time.Millisecond)
	if got := src.reads.Load(); got != reads {
		t.Errorf("exp source untouched after Finish, reads went from %d to %d", reads, got)
	}
	if c.State() != replay.StateSucceeded {
		t.Errorf("exp succeeded, got %s", c.State())
	}
}

func TestOptions(t *testing.T) {
	p, _ := payload.New("x")
	if _, err := replay.FromPayload(t.Context(), p, replay.WithLogger(nil)); err == nil {
		t.Error("exp error for nil logger")
	}
	if _, err := replay.FromPayload(t.Context(), nil); err == nil {
		t.Error("exp error for nil payload")
	}
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, "http://example.invalid/upload", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	return req
}

func readAll(t *testing.T, r io.ReadCloser) []byte {
	t.Helper()
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	return b
}
