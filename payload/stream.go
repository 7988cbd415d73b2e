package payload

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// Stream wraps a one-shot reader. Only a single WriteTo is permitted.
type Stream struct {
	r           io.Reader
	size        int64
	contentType string
	consumed    atomic.Bool
}

func newStream(r io.Reader, opts options) *Stream {
	contentType := opts.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size := int64(-1)
	if opts.sizeSet {
		size = opts.size
	}

	return &Stream{r: r, size: size, contentType: contentType}
}

func (p *Stream) Kind() Kind          { return KindStream }
func (p *Stream) Len() int64          { return p.size }
func (p *Stream) ContentType() string { return p.contentType }
func (p *Stream) Seekable() bool      { return false }

func (p *Stream) WriteTo(w io.Writer) (int64, error) {
	if p.consumed.Swap(true) {
		return 0, ErrConsumed
	}

	if p.size < 0 {
		return io.Copy(w, p.r)
	}

	n, err := io.CopyN(w, p.r, p.size)
	if errors.Is(err, io.EOF) {
		return n, fmt.Errorf("stream ended after %d of %d bytes: %w", n, p.size, io.ErrUnexpectedEOF)
	}

	return n, err
}

// SeekableStream wraps an io.ReadSeeker that is not an *os.File, such as
// a *bytes.Reader. Every write starts from the original offset.
type SeekableStream struct {
	rs          io.ReadSeeker
	start       int64
	size        int64
	contentType string
}

func newSeekableStream(rs io.ReadSeeker, opts options) (*SeekableStream, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("reading stream offset: %w", err)
	}

	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measuring stream: %w", err)
	}

	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("restoring stream offset: %w", err)
	}

	contentType := opts.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &SeekableStream{rs: rs, start: start, size: max(end-start, 0), contentType: contentType}, nil
}

func (p *SeekableStream) Kind() Kind          { return KindSeekableStream }
func (p *SeekableStream) Len() int64          { return p.size }
func (p *SeekableStream) ContentType() string { return p.contentType }
func (p *SeekableStream) Seekable() bool      { return true }

func (p *SeekableStream) Rewind() error {
	if _, err := p.rs.Seek(p.start, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding stream: %w", err)
	}
	return nil
}

func (p *SeekableStream) WriteTo(w io.Writer) (int64, error) {
	if err := p.Rewind(); err != nil {
		return 0, err
	}

	n, err := io.CopyN(w, p.rs, p.size)
	if errors.Is(err, io.EOF) {
		return n, fmt.Errorf("stream ended after %d of %d bytes: %w", n, p.size, io.ErrUnexpectedEOF)
	}

	return n, err
}

// TextStream marks a reader of UTF-8 text that should be transcoded into
// the field's charset while it is written.
type TextStream struct {
	R io.Reader
}

// Text wraps r as a [TextStream].
func Text(r io.Reader) TextStream {
	return TextStream{R: r}
}

type textStream struct {
	r           io.Reader
	seeker      io.Seeker
	start       int64
	charset     string
	contentType string
	consumed    atomic.Bool
}

func newTextStream(ts TextStream, opts options) (*textStream, error) {
	contentType, charset := textContentType(opts.contentType, opts.charset)
	if _, err := LookupCharset(charset); err != nil {
		return nil, err
	}

	p := &textStream{r: ts.R, charset: charset, contentType: contentType}

	if s, ok := ts.R.(io.Seeker); ok {
		start, err := s.Seek(0, io.SeekCurrent)
		if err == nil {
			p.seeker = s
			p.start = start
		}
	}

	return p, nil
}

func (p *textStream) Kind() Kind          { return KindTextStream }
func (p *textStream) Len() int64          { return -1 }
func (p *textStream) ContentType() string { return p.contentType }
func (p *textStream) Seekable() bool      { return p.seeker != nil }

func (p *textStream) Rewind() error {
	if p.seeker == nil {
		return ErrConsumed
	}
	if _, err := p.seeker.Seek(p.start, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding text stream: %w", err)
	}
	return nil
}

func (p *textStream) WriteTo(w io.Writer) (int64, error) {
	if p.seeker != nil {
		if err := p.Rewind(); err != nil {
			return 0, err
		}
	} else if p.consumed.Swap(true) {
		return 0, ErrConsumed
	}

	r, err := encodeReader(p.r, p.charset)
	if err != nil {
		return 0, err
	}

	return io.Copy(w, r)
}
