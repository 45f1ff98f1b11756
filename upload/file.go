// Package upload defines the uploaded-file capability.
//
// Any value implementing File is accepted as a leaf of a server request's
// uploaded-files tree.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"

	"github.com/yourusername/serverrequest/stream"
)

// Upload error codes reported by File.Error.
const (
	ErrorOK        = 0 // upload completed
	ErrorIniSize   = 1 // exceeded the server's size limit
	ErrorFormSize  = 2 // exceeded the form's declared size limit
	ErrorPartial   = 3 // only partially received
	ErrorNoFile    = 4 // no file was sent
	ErrorNoTmpDir  = 6 // no temporary directory
	ErrorCantWrite = 7 // failed to write to disk
	ErrorExtension = 8 // stopped by an extension
)

var (
	// ErrMoved is returned when a file is used after MoveTo succeeded.
	ErrMoved = errors.New("upload: file already moved")

	// ErrUploadFailed is returned by Stream and MoveTo when Error() != ErrorOK.
	ErrUploadFailed = errors.New("upload: upload did not complete")

	// ErrEmptyTarget is returned by MoveTo for an empty target path.
	ErrEmptyTarget = errors.New("upload: empty target path")
)

// File is a single file received through a multipart upload.
type File interface {
	// Stream opens the file contents.
	Stream() (stream.Stream, error)

	// MoveTo writes the contents to targetPath. The file cannot be
	// streamed or moved again afterwards.
	MoveTo(targetPath string) error

	// Size returns the size in bytes when it is known.
	Size() (int64, bool)

	// Error returns one of the Error* codes.
	Error() int

	// ClientFilename returns the name sent by the client. Never trust it.
	ClientFilename() string

	// ClientMediaType returns the media type sent by the client. Never trust it.
	ClientMediaType() string
}

// Opener opens the contents of an uploaded file.
type Opener func() (io.ReadCloser, error)

// file is the default File implementation.
type file struct {
	open      Opener
	size      int64
	sizeKnown bool
	errCode   int
	filename  string
	mediaType string

	mu    sync.Mutex
	moved bool
}

// New returns a File backed by open.
// A negative size means the size is unknown.
func New(open Opener, size int64, errCode int, filename, mediaType string) File {
	return &file{
		open:      open,
		size:      size,
		sizeKnown: size >= 0,
		errCode:   errCode,
		filename:  filename,
		mediaType: mediaType,
	}
}

// FromFileHeader wraps a part of an already-parsed multipart form.
func FromFileHeader(fh *multipart.FileHeader) File {
	return New(func() (io.ReadCloser, error) {
		return fh.Open()
	}, fh.Size, ErrorOK, fh.Filename, fh.Header.Get("Content-Type"))
}

// FromString returns a File with in-memory contents. Useful in tests.
func FromString(contents, filename, mediaType string) File {
	return New(func() (io.ReadCloser, error) {
		return stream.FromString(contents), nil
	}, int64(len(contents)), ErrorOK, filename, mediaType)
}

// Failed returns a File describing an upload that did not complete.
func Failed(errCode int, filename string) File {
	return New(nil, -1, errCode, filename, "")
}

func (f *file) Size() (int64, bool)     { return f.size, f.sizeKnown }
func (f *file) Error() int              { return f.errCode }
func (f *file) ClientFilename() string  { return f.filename }
func (f *file) ClientMediaType() string { return f.mediaType }

func (f *file) usable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usableLocked()
}

func (f *file) usableLocked() error {
	if f.errCode != ErrorOK || f.open == nil {
		return fmt.Errorf("%w: code %d", ErrUploadFailed, f.errCode)
	}
	if f.moved {
		return ErrMoved
	}
	return nil
}

func (f *file) Stream() (stream.Stream, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	rc, err := f.open()
	if err != nil {
		return nil, err
	}
	return stream.New(rc)
}

// MoveTo holds mu for the whole copy, so concurrent moves of the same
// file write the target once and the others fail with ErrMoved.
func (f *file) MoveTo(targetPath string) error {
	if targetPath == "" {
		return ErrEmptyTarget
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return err
	}

	src, err := f.open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	f.moved = true
	return nil
}
