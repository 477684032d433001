package core

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// FileHandle is an opaque reference to binary content attached to a request.
// The formatter never opens, reads or closes a handle; the transport layer
// that consumes the formatted payload owns that.
type FileHandle interface {
	// Name is the filename reported to the API.
	Name() string
	// Open returns a reader over the content.
	Open() (io.ReadCloser, error)
}

// LocalFile is a file on disk, opened lazily.
type LocalFile struct {
	Path string
}

// NewLocalFile returns a handle for path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{Path: path}
}

func (f *LocalFile) Name() string { return filepath.Base(f.Path) }

func (f *LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.Path) }

// BytesFile is in-memory content.
type BytesFile struct {
	Filename string
	Data     []byte
}

// NewBytesFile returns a handle over data.
func NewBytesFile(filename string, data []byte) *BytesFile {
	return &BytesFile{Filename: filename, Data: data}
}

func (f *BytesFile) Name() string { return f.Filename }

func (f *BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// ErrReaderConsumed is returned when a ReaderFile is opened a second time.
var ErrReaderConsumed = errors.New("reader file already opened")

// ReaderFile wraps a caller-supplied stream. It can be opened once.
type ReaderFile struct {
	Filename string
	Reader   io.Reader
	opened   bool
}

// NewReaderFile returns a single-use handle over r.
func NewReaderFile(filename string, r io.Reader) *ReaderFile {
	return &ReaderFile{Filename: filename, Reader: r}
}

func (f *ReaderFile) Name() string { return f.Filename }

func (f *ReaderFile) Open() (io.ReadCloser, error) {
	if f.opened {
		return nil, ErrReaderConsumed
	}
	f.opened = true
	if rc, ok := f.Reader.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(f.Reader), nil
}
