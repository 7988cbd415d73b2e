package formdata

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/textproto"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/adamwoolhether/formwire/payload"
)

// HeaderField is a single header line of a part.
type HeaderField struct {
	Key   string
	Value string
}

// Part is one framed field of a multipart body.
type Part struct {
	Header []HeaderField
	Body   payload.Payload

	head []byte
}

// Writer frames an ordered list of parts into a multipart/form-data body.
// It is itself a [payload.Payload]; parts are streamed one after another
// and a part's source is not touched before the previous part finished.
type Writer struct {
	boundary string
	parts    []Part
}

// NewWriter returns a Writer using boundary, or a random one when empty.
func NewWriter(boundary string) (*Writer, error) {
	if boundary == "" {
		boundary = newBoundary()
	}

	if err := validateBoundary(boundary); err != nil {
		return nil, invalidParam("", "boundary %q: %v", boundary, err)
	}

	return &Writer{boundary: boundary}, nil
}

// Append adds a part. Header lines are written in the given order,
// followed by the body's Content-Type unless header already sets one.
func (w *Writer) Append(body payload.Payload, header ...HeaderField) {
	h := slices.Clone(header)
	if ct := body.ContentType(); ct != "" && !hasHeader(h, "Content-Type") {
		h = append(h, HeaderField{Key: "Content-Type", Value: ct})
	}

	var buf bytes.Buffer
	buf.WriteString("--" + w.boundary + "\r\n")
	for _, f := range h {
		buf.WriteString(f.Key + ": " + f.Value + "\r\n")
	}
	buf.WriteString("\r\n")

	w.parts = append(w.parts, Part{Header: h, Body: body, head: buf.Bytes()})
}

// Boundary returns the delimiter token.
func (w *Writer) Boundary() string { return w.boundary }

// Parts returns the parts in write order.
func (w *Writer) Parts() []Part { return slices.Clone(w.parts) }

func (w *Writer) Kind() payload.Kind { return payload.KindMultipart }

func (w *Writer) ContentType() string {
	return mime.FormatMediaType("multipart/form-data", map[string]string{"boundary": w.boundary})
}

// Len is the total body size, or -1 if any part's size is unknown.
func (w *Writer) Len() int64 {
	total := int64(len(w.closing()))
	for _, p := range w.parts {
		n := p.Body.Len()
		if n < 0 {
			return -1
		}
		total += int64(len(p.head)) + n + 2
	}
	return total
}

// Seekable reports whether every part can be rewound.
func (w *Writer) Seekable() bool {
	for _, p := range w.parts {
		if !p.Body.Seekable() {
			return false
		}
	}
	return true
}

// Rewind resets every part to its original offset.
func (w *Writer) Rewind() error {
	var errs []error
	for _, p := range w.parts {
		if r, ok := p.Body.(payload.Rewinder); ok {
			errs = append(errs, r.Rewind())
		}
	}
	return errors.Join(errs...)
}

// WriteTo streams the framed body to dst. Errors from dst or from a
// part's source are returned unmodified.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	var written int64

	for _, p := range w.parts {
		n, err := dst.Write(p.head)
		written += int64(n)
		if err != nil {
			return written, err
		}

		m, err := p.Body.WriteTo(dst)
		written += m
		if err != nil {
			return written, err
		}

		n, err = io.WriteString(dst, "\r\n")
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	n, err := io.WriteString(dst, w.closing())
	written += int64(n)

	return written, err
}

func (w *Writer) closing() string {
	return "--" + w.boundary + "--\r\n"
}

func hasHeader(h []HeaderField, key string) bool {
	key = textproto.CanonicalMIMEHeaderKey(key)
	for _, f := range h {
		if textproto.CanonicalMIMEHeaderKey(f.Key) == key {
			return true
		}
	}
	return false
}

// newBoundary returns a random hex token.
func newBoundary() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// validateBoundary checks the RFC 2046 section 5.1.1 grammar.
func validateBoundary(boundary string) error {
	if len(boundary) < 1 || len(boundary) > 70 {
		return errors.New("length must be between 1 and 70")
	}
	if strings.HasSuffix(boundary, " ") {
		return errors.New("must not end with a space")
	}

	for _, b := range boundary {
		if 'A' <= b && b <= 'Z' || 'a' <= b && b <= 'z' || '0' <= b && b <= '9' {
			continue
		}
		switch b {
		case '\'', '(', ')', '+', '_', ',', '-', '.', '/', ':', '=', '?', ' ':
			continue
		}
		return errors.New("invalid character")
	}

	return nil
}
