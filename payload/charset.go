package payload

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is used for text values when neither the content type
// nor the caller names one.
const DefaultCharset = "utf-8"

// LookupCharset resolves a charset label to an encoding. IANA names are
// tried first, then the WHATWG labels browsers accept (e.g. "shift-jis").
func LookupCharset(name string) (encoding.Encoding, error) {
	if isUTF8(name) {
		return unicode.UTF8, nil
	}

	// WHATWG maps ascii to windows-1252; resolve it to strict US-ASCII.
	if strings.EqualFold(name, "ascii") || strings.EqualFold(name, "us-ascii") {
		name = "US-ASCII"
	}

	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}

	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}

	return nil, &Error{Detail: fmt.Sprintf("%q", name), Err: ErrUnknownCharset}
}

// EncodeString converts UTF-8 text into the named charset.
func EncodeString(s, charset string) ([]byte, error) {
	if isUTF8(charset) {
		return []byte(s), nil
	}

	enc, err := LookupCharset(charset)
	if err != nil {
		return nil, err
	}

	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding text as %s: %w", charset, err)
	}

	return b, nil
}

// encodeReader transcodes a UTF-8 reader into charset lazily.
func encodeReader(r io.Reader, charset string) (io.Reader, error) {
	if isUTF8(charset) {
		return r, nil
	}

	enc, err := LookupCharset(charset)
	if err != nil {
		return nil, err
	}

	return transform.NewReader(r, enc.NewEncoder()), nil
}

// CharsetParam returns the charset parameter of a content type, if any.
func CharsetParam(contentType string) string {
	if contentType == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	return params["charset"]
}

// textContentType resolves the content type and the charset text is
// encoded with. A charset already present in contentType wins; otherwise
// fallback is used and appended to the header.
func textContentType(contentType, fallback string) (string, string) {
	if fallback == "" {
		fallback = DefaultCharset
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	if cs := CharsetParam(contentType); cs != "" {
		return contentType, cs
	}

	return contentType + "; charset=" + fallback, fallback
}

func isUTF8(name string) bool {
	return strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8")
}
