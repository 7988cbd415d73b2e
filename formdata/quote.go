package formdata

import (
	"strings"

	"github.com/adamwoolhether/formwire/payload"
)

const upperhex = "0123456789ABCDEF"

// Quote escapes s for use inside an HTTP quoted-string. When enabled,
// backslash, double quote, space and tab are backslash-escaped. When
// disabled only backslash and double quote are, which is the least needed
// to keep the quoted-string closed.
func Quote(s string, enabled bool) string {
	var b strings.Builder
	b.Grow(len(s) + 2)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			b.WriteByte('\\')
		case ' ', '\t':
			if enabled {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}

	return b.String()
}

// FormatParam renders a header parameter such as name="field".
//
// With quoting enabled the value is first encoded with charset. If every
// resulting byte is printable ASCII the parameter is a quoted-string,
// otherwise it uses the extended form key*=charset''percent-encoded.
// With quoting disabled the value is emitted as-is inside quotes.
func FormatParam(key, value, charset string, quote bool) (string, error) {
	if !quote {
		return key + `="` + Quote(value, false) + `"`, nil
	}

	b, err := payload.EncodeString(value, charset)
	if err != nil {
		return "", err
	}

	if isQContent(b) {
		return key + `="` + Quote(string(b), true) + `"`, nil
	}

	return key + "*=" + charset + "''" + percentEncode(b), nil
}

func isQContent(b []byte) bool {
	for _, c := range b {
		if c != '\t' && (c < 0x20 || c > 0x7e) {
			return false
		}
	}
	return true
}

// percentEncode escapes everything outside the RFC 5987 attr-char set.
func percentEncode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)

	for _, c := range b {
		if isAttrChar(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0f])
	}

	return sb.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}

	return false
}
