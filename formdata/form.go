package formdata

import (
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/adamwoolhether/formwire/payload"
)

const urlencodedType = "application/x-www-form-urlencoded"

// Form is an ordered collection of fields that generates a request body.
// The body is built on demand by [Form.Generate] and can be generated again
// for every attempt of a request. The first Generate seals the form.
type Form struct {
	mu        sync.Mutex
	opts      options
	boundary  string
	fields    []Field
	multipart bool
	sealed    bool
	writer    *Writer
}

// New constructs an empty Form.
func New(optFns ...Option) (*Form, error) {
	opts := defaultOptions()
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying form option: %w", err)
		}
	}

	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	boundary := opts.Boundary
	if boundary == "" {
		boundary = newBoundary()
	}

	return &Form{
		opts:     opts,
		boundary: boundary,
	}, nil
}

// NewFrom constructs a Form populated from fields, which must be one of
// url.Values, map[string]string or []Field.
func NewFrom(fields any, optFns ...Option) (*Form, error) {
	f, err := New(optFns...)
	if err != nil {
		return nil, err
	}

	if err := f.AddFields(fields); err != nil {
		return nil, err
	}

	return f, nil
}

// AddFields adds every entry of fields. Map keys are added in sorted
// order, url.Values entries keep the order of their values.
func (f *Form) AddFields(fields any) error {
	switch v := fields.(type) {
	case nil:
		return nil

	case url.Values:
		for _, name := range slices.Sorted(maps.Keys(v)) {
			for _, value := range v[name] {
				if err := f.AddField(name, value); err != nil {
					return err
				}
			}
		}

	case map[string]string:
		for _, name := range slices.Sorted(maps.Keys(v)) {
			if err := f.AddField(name, v[name]); err != nil {
				return err
			}
		}

	case []Field:
		for _, field := range v {
			var opts []FieldOption
			if field.ContentType != "" {
				opts = append(opts, WithContentType(field.ContentType))
			}
			if field.Filename != "" {
				opts = append(opts, WithFilename(field.Filename))
			}
			for _, h := range field.Header {
				opts = append(opts, WithHeader(h.Key, h.Value))
			}

			if err := f.AddField(field.Name, field.Value, opts...); err != nil {
				return err
			}
		}

	default:
		return invalidParam("", "fields must be url.Values, map[string]string or []Field, got %T", fields)
	}

	return nil
}

// AddField appends a field. The value's kind is checked when the body is
// generated, its parameters are checked now.
func (f *Form) AddField(name string, value any, optFns ...FieldOption) error {
	field := Field{Name: name, Value: value}
	for _, opt := range optFns {
		if err := opt(&field); err != nil {
			return err
		}
	}

	if field.ContentType != "" {
		if _, err := payload.LookupCharset(charsetOr(field.ContentType, f.opts.Charset)); err != nil {
			return &Error{Field: name, Detail: field.ContentType, Err: err}
		}
	}

	field.Filename = guessFilename(field)

	if s := seekerOf(value); s != nil {
		// Unseekable files such as pipes report an error here and are
		// treated as one-shot streams.
		if off, err := s.Seek(0, io.SeekCurrent); err == nil {
			field.seeker = s
			field.origin = off
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sealed {
		return &Error{Field: name, Err: ErrSealed}
	}

	if field.Filename != "" || field.ContentType != "" || !isPlainText(value) {
		f.multipart = true
	}

	f.fields = append(f.fields, field)

	return nil
}

// AddFieldParams appends a field whose parameters come from a loosely typed
// source. Non-string content_type or filename values and unknown keys fail
// with ErrInvalidParameter.
func (f *Form) AddFieldParams(name string, value any, params Params) error {
	opts, err := params.options(name)
	if err != nil {
		return err
	}

	return f.AddField(name, value, opts...)
}

// IsMultipart reports whether the form is encoded as multipart/form-data.
// Once a field requires it, the form stays multipart.
func (f *Form) IsMultipart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.multipart
}

// Generate builds a fresh body from the fields. Seekable sources are
// rewound to the offset they had when added, so every call yields the same
// bytes for the same sources.
func (f *Form) Generate() (payload.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sealed = true

	if err := f.rewind(); err != nil {
		return nil, err
	}

	if !f.multipart {
		return f.urlencoded()
	}

	w, err := f.build()
	if err != nil {
		return nil, err
	}
	f.writer = w

	return w, nil
}

// Boundary returns the multipart boundary, fixed when the form was made.
func (f *Form) Boundary() string { return f.boundary }

// Charset returns the charset text is encoded with.
func (f *Form) Charset() string { return f.opts.Charset }

// Fields returns a copy of the fields in declaration order.
func (f *Form) Fields() []Field {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.fields)
}

// Writer returns the most recently generated multipart body, or nil.
func (f *Form) Writer() *Writer {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writer
}

func (f *Form) rewind() error {
	for _, field := range f.fields {
		if field.seeker == nil {
			continue
		}
		if _, err := field.seeker.Seek(field.origin, io.SeekStart); err != nil {
			return &Error{Field: field.Name, Detail: "rewinding source", Err: err}
		}
	}

	return nil
}

func (f *Form) build() (*Writer, error) {
	w := &Writer{boundary: f.boundary}

	for _, field := range f.fields {
		opts := []payload.Option{payload.WithCharset(f.opts.Charset)}
		if field.ContentType != "" {
			opts = append(opts, payload.WithContentType(field.ContentType))
		}

		body, err := payload.New(field.Value, opts...)
		if err != nil {
			return nil, &Error{Field: field.Name, Err: err}
		}

		disposition, err := f.disposition(field)
		if err != nil {
			return nil, &Error{Field: field.Name, Detail: "encoding disposition", Err: err}
		}

		header := make([]HeaderField, 0, len(field.Header)+1)
		header = append(header, HeaderField{Key: "Content-Disposition", Value: disposition})
		header = append(header, field.Header...)

		w.Append(body, header...)
	}

	return w, nil
}

func (f *Form) disposition(field Field) (string, error) {
	name, err := FormatParam("name", field.Name, f.opts.Charset, f.opts.QuoteFields)
	if err != nil {
		return "", err
	}

	d := "form-data; " + name
	if field.Filename == "" {
		return d, nil
	}

	filename, err := FormatParam("filename", field.Filename, f.opts.Charset, f.opts.QuoteFields)
	if err != nil {
		return "", err
	}

	return d + "; " + filename, nil
}

func (f *Form) urlencoded() (payload.Payload, error) {
	pairs := make([]string, 0, len(f.fields))

	for _, field := range f.fields {
		value, ok := field.Value.(string)
		if !ok {
			return nil, &Error{
				Field:  field.Name,
				Detail: fmt.Sprintf("%T", field.Value),
				Err:    ErrUnsupportedValue,
			}
		}

		k, err := payload.EncodeString(field.Name, f.opts.Charset)
		if err != nil {
			return nil, &Error{Field: field.Name, Detail: "encoding name", Err: err}
		}
		v, err := payload.EncodeString(value, f.opts.Charset)
		if err != nil {
			return nil, &Error{Field: field.Name, Detail: "encoding value", Err: err}
		}

		pairs = append(pairs, url.QueryEscape(string(k))+"="+url.QueryEscape(string(v)))
	}

	contentType := urlencodedType
	if !strings.EqualFold(f.opts.Charset, payload.DefaultCharset) {
		contentType += "; charset=" + f.opts.Charset
	}

	return payload.New([]byte(strings.Join(pairs, "&")), payload.WithContentType(contentType))
}

// isPlainText reports whether value can travel in a url-encoded body.
// Prebuilt payloads always need a part of their own.
func isPlainText(value any) bool {
	_, ok := value.(string)
	return ok
}

// charsetOr returns the charset parameter of contentType, or fallback.
func charsetOr(contentType, fallback string) string {
	if cs := payload.CharsetParam(contentType); cs != "" {
		return cs
	}
	return fallback
}
