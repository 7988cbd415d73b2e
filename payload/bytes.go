package payload

import (
	"io"
)

// Bytes is an in-memory payload. It backs both text and binary values;
// text is encoded into its charset when the payload is built.
type Bytes struct {
	kind        Kind
	data        []byte
	contentType string
}

func newBytes(b []byte, opts options) *Bytes {
	contentType := opts.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Bytes{kind: KindBytes, data: b, contentType: contentType}
}

func newText(s string, opts options) (*Bytes, error) {
	contentType, charset := textContentType(opts.contentType, opts.charset)

	b, err := EncodeString(s, charset)
	if err != nil {
		return nil, err
	}

	return &Bytes{kind: KindText, data: b, contentType: contentType}, nil
}

func (p *Bytes) Kind() Kind          { return p.kind }
func (p *Bytes) Len() int64          { return int64(len(p.data)) }
func (p *Bytes) ContentType() string { return p.contentType }
func (p *Bytes) Seekable() bool      { return true }
func (p *Bytes) Rewind() error       { return nil }

// Data returns the encoded bytes.
func (p *Bytes) Data() []byte { return p.data }

func (p *Bytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.data)
	return int64(n), err
}
