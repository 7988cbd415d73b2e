package payload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// File streams an open file from the offset it had when the payload was
// built. The file is borrowed, never closed.
type File struct {
	f           *os.File
	start       int64
	size        int64
	contentType string
}

func newFile(f *os.File, opts options) (*File, error) {
	start, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("reading file offset: %w", err)
	}

	size := int64(-1)
	if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
		size = max(st.Size()-start, 0)
	}

	contentType := opts.contentType
	if contentType == "" {
		contentType, err = detectFileType(f, start)
		if err != nil {
			return nil, err
		}
	}

	return &File{f: f, start: start, size: size, contentType: contentType}, nil
}

// detectFileType guesses from the extension first and falls back to
// sniffing the leading bytes, restoring the offset afterwards.
func detectFileType(f *os.File, start int64) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(f.Name())); t != "" {
		return t, nil
	}

	mt, sniffErr := mimetype.DetectReader(f)
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return "", fmt.Errorf("restoring file offset: %w", err)
	}
	if sniffErr != nil {
		return "application/octet-stream", nil
	}

	return mt.String(), nil
}

func (p *File) Kind() Kind          { return KindFile }
func (p *File) Len() int64          { return p.size }
func (p *File) ContentType() string { return p.contentType }
func (p *File) Seekable() bool      { return true }

// Filename returns the base name of the file's path.
func (p *File) Filename() string { return filepath.Base(p.f.Name()) }

func (p *File) Rewind() error {
	if _, err := p.f.Seek(p.start, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", p.f.Name(), err)
	}
	return nil
}

func (p *File) WriteTo(w io.Writer) (int64, error) {
	if err := p.Rewind(); err != nil {
		return 0, err
	}

	if p.size < 0 {
		return io.Copy(w, p.f)
	}

	n, err := io.CopyN(w, p.f, p.size)
	if errors.Is(err, io.EOF) {
		return n, fmt.Errorf("file %s shrank to %d of %d bytes: %w", p.f.Name(), n, p.size, io.ErrUnexpectedEOF)
	}

	return n, err
}
