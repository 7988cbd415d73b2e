package formdata

import (
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adamwoolhether/formwire/payload"
)

// Field is one named entry of a form.
type Field struct {
	Name        string
	Value       any
	ContentType string
	Filename    string
	Header      []HeaderField

	seeker io.Seeker
	origin int64
}

// FieldOption is a functional option for [Form.AddField].
type FieldOption func(*Field) error

// WithContentType sets the part's Content-Type. For text values a charset
// parameter selects the encoding of the value.
func WithContentType(contentType string) FieldOption {
	return func(f *Field) error {
		f.ContentType = contentType
		return nil
	}
}

// WithFilename sets the filename parameter of the part's disposition.
func WithFilename(filename string) FieldOption {
	return func(f *Field) error {
		f.Filename = filename
		return nil
	}
}

// WithHeader adds an extra header line to the part.
func WithHeader(key, value string) FieldOption {
	return func(f *Field) error {
		if err := checkHeader(f.Name, key, value); err != nil {
			return err
		}
		f.Header = append(f.Header, HeaderField{Key: key, Value: value})
		return nil
	}
}

// Params carries loosely typed field parameters, as decoded from YAML or
// JSON. Recognised keys are "content_type", "filename" and "headers".
type Params map[string]any

const (
	paramContentType = "content_type"
	paramFilename    = "filename"
	paramHeaders     = "headers"
)

// options converts params into field options, rejecting values of the
// wrong type before anything is sent.
func (p Params) options(field string) ([]FieldOption, error) {
	var opts []FieldOption

	for _, key := range slices.Sorted(maps.Keys(p)) {
		v := p[key]
		if v == nil {
			continue
		}

		switch key {
		case paramContentType:
			s, ok := v.(string)
			if !ok {
				return nil, invalidParam(field, "content_type must be a string, got %T", v)
			}
			opts = append(opts, WithContentType(s))

		case paramFilename:
			s, ok := v.(string)
			if !ok {
				return nil, invalidParam(field, "filename must be a string, got %T", v)
			}
			opts = append(opts, WithFilename(s))

		case paramHeaders:
			h, err := headerParams(field, v)
			if err != nil {
				return nil, err
			}
			for _, hf := range h {
				opts = append(opts, WithHeader(hf.Key, hf.Value))
			}

		default:
			return nil, invalidParam(field, "unknown parameter %q", key)
		}
	}

	return opts, nil
}

func headerParams(field string, v any) ([]HeaderField, error) {
	switch h := v.(type) {
	case map[string]string:
		out := make([]HeaderField, 0, len(h))
		for _, k := range slices.Sorted(maps.Keys(h)) {
			out = append(out, HeaderField{Key: k, Value: h[k]})
		}
		return out, nil
	case map[string]any:
		out := make([]HeaderField, 0, len(h))
		for _, k := range slices.Sorted(maps.Keys(h)) {
			s, ok := h[k].(string)
			if !ok {
				return nil, invalidParam(field, "header %q must be a string, got %T", k, h[k])
			}
			out = append(out, HeaderField{Key: k, Value: s})
		}
		return out, nil
	case []HeaderField:
		return h, nil
	default:
		return nil, invalidParam(field, "headers must be a mapping of strings, got %T", v)
	}
}

func checkHeader(field, key, value string) error {
	if key == "" || strings.ContainsAny(key, " :\r\n\t") {
		return invalidParam(field, "invalid header name %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return invalidParam(field, "header %q value must not contain line breaks", key)
	}
	return nil
}

// guessFilename mirrors what a browser sends for file-like values.
func guessFilename(field Field) string {
	if field.Filename != "" {
		return field.Filename
	}

	switch payload.Classify(field.Value) {
	case payload.KindFile:
		if f, ok := field.Value.(*os.File); ok {
			return filepath.Base(f.Name())
		}
		if named, ok := field.Value.(payload.Filenamer); ok {
			return named.Filename()
		}
		return field.Name
	case payload.KindBytes:
		if field.ContentType == "" {
			return field.Name
		}
	case payload.KindTextStream, payload.KindSeekableStream, payload.KindStream:
		return field.Name
	}

	return ""
}

// seekerOf returns the rewindable source behind a field value, if any.
func seekerOf(value any) io.Seeker {
	switch v := value.(type) {
	case payload.Payload:
		return nil
	case payload.TextStream:
		s, _ := v.R.(io.Seeker)
		return s
	case io.Seeker:
		return v
	}
	return nil
}
