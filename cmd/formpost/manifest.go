package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/formwire/formdata"
)

// manifest describes a form to post.
//
//	form:
//	  charset: utf-8
//	  quote_fields: true
//	fields:
//	  - name: title
//	    value: quarterly
//	  - name: report
//	    file: ./report.json
//	    params:
//	      content_type: application/json
//	      headers:
//	        X-Source: formpost
type manifest struct {
	Form   formConfig  `yaml:"form"`
	Fields []fieldSpec `yaml:"fields"`
}

type formConfig struct {
	Boundary    string `yaml:"boundary"`
	Charset     string `yaml:"charset"`
	QuoteFields *bool  `yaml:"quote_fields"`
}

type fieldSpec struct {
	Name   string          `yaml:"name"`
	Value  *string         `yaml:"value"`
	File   string          `yaml:"file"`
	Params formdata.Params `yaml:"params"`
}

// loadManifest reads a manifest file. Relative file paths in it are
// resolved against the manifest's directory.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := parseManifest(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i, f := range m.Fields {
		if f.File != "" && !filepath.IsAbs(f.File) {
			m.Fields[i].File = filepath.Join(dir, f.File)
		}
	}

	return m, nil
}

func parseManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if len(m.Fields) == 0 {
		return nil, errors.New("manifest has no fields")
	}

	for i, f := range m.Fields {
		switch {
		case f.Name == "":
			return nil, fmt.Errorf("field %d: missing name", i)
		case f.Value != nil && f.File != "":
			return nil, fmt.Errorf("field %q: value and file are exclusive", f.Name)
		case f.Value == nil && f.File == "":
			return nil, fmt.Errorf("field %q: one of value or file is required", f.Name)
		}
	}

	return &m, nil
}

// build assembles the form. Opened files are returned as a closer the
// caller must invoke once the request is done.
func (m *manifest) build() (*formdata.Form, io.Closer, error) {
	var opts []formdata.Option
	if m.Form.Boundary != "" {
		opts = append(opts, formdata.WithBoundary(m.Form.Boundary))
	}
	if m.Form.Charset != "" {
		opts = append(opts, formdata.WithCharset(m.Form.Charset))
	}
	if m.Form.QuoteFields != nil {
		opts = append(opts, formdata.WithQuoteFields(*m.Form.QuoteFields))
	}

	form, err := formdata.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating form: %w", err)
	}

	var files fileSet
	for _, f := range m.Fields {
		var value any
		if f.Value != nil {
			value = *f.Value
		} else {
			fh, err := os.Open(f.File)
			if err != nil {
				files.Close()
				return nil, nil, fmt.Errorf("opening field %q: %w", f.Name, err)
			}
			files = append(files, fh)
			value = fh
		}

		if err := form.AddFieldParams(f.Name, value, f.Params); err != nil {
			files.Close()
			return nil, nil, fmt.Errorf("adding field: %w", err)
		}
	}

	return form, files, nil
}

type fileSet []*os.File

func (fs fileSet) Close() error {
	var errs []error
	for _, f := range fs {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
