package attach

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"attachr/internal/models"
)

// RawFile is a readable payload handed to the uploader.
type RawFile = models.RawFile

// Locator is implemented by files that can be found again after a restart.
type Locator interface {
	Origin() string
}

// GuessMimeType returns the media type registered for the extension of name.
func GuessMimeType(name string) string {
	value := mime.TypeByExtension(filepath.Ext(name))
	if value == "" {
		return ""
	}
	media, _, err := mime.ParseMediaType(value)
	if err != nil {
		return value
	}
	return media
}

// LocalFile is a file on the local filesystem.
type LocalFile struct {
	path string
	name string
	size int64
	mime string
}

// NewLocalFile stats path and returns a handle for it.
func NewLocalFile(path string) (*LocalFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	name := info.Name()
	return &LocalFile{path: abs, name: name, size: info.Size(), mime: GuessMimeType(name)}, nil
}

func (f *LocalFile) Name() string                 { return f.name }
func (f *LocalFile) Size() int64                  { return f.size }
func (f *LocalFile) MimeType() string             { return f.mime }
func (f *LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }
func (f *LocalFile) Origin() string               { return f.path }

// MemoryFile is an in-memory payload, such as pasted clipboard content.
type MemoryFile struct {
	name string
	mime string
	data []byte
}

// NewMemoryFile wraps data. An empty mimeType is guessed from name.
func NewMemoryFile(name, mimeType string, data []byte) *MemoryFile {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = GuessMimeType(name)
	}
	return &MemoryFile{name: name, mime: mimeType, data: data}
}

func (f *MemoryFile) Name() string     { return f.name }
func (f *MemoryFile) Size() int64      { return int64(len(f.data)) }
func (f *MemoryFile) MimeType() string { return f.mime }
func (f *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// OpenerFile reads its payload through open on every call.
type OpenerFile struct {
	name   string
	size   int64
	mime   string
	origin string
	open   func() (io.ReadCloser, error)
}

// NewOpenerFile builds a file whose content comes from open. origin is
// reported through Locator and may be empty.
func NewOpenerFile(name string, size int64, mimeType, origin string, open func() (io.ReadCloser, error)) *OpenerFile {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = GuessMimeType(name)
	}
	return &OpenerFile{name: name, size: size, mime: mimeType, origin: origin, open: open}
}

func (f *OpenerFile) Name() string     { return f.name }
func (f *OpenerFile) Size() int64      { return f.size }
func (f *OpenerFile) MimeType() string { return f.mime }
func (f *OpenerFile) Origin() string   { return f.origin }
func (f *OpenerFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("%s has no content", f.name)
	}
	return f.open()
}

func originOf(file RawFile) string {
	switch f := file.(type) {
	case FileWithPath:
		return originOf(f.File)
	case *FileWithPath:
		return originOf(f.File)
	case Locator:
		return f.Origin()
	}
	return ""
}

func relativePathOf(file RawFile) string {
	switch f := file.(type) {
	case FileWithPath:
		return f.RelativePath
	case *FileWithPath:
		return f.RelativePath
	}
	return ""
}
