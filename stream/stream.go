// Package stream provides the body stream abstraction used by HTTP messages.
//
// A body can be built from:
//   - a string or []byte (in-memory, seekable)
//   - any io.Reader, including *os.File handles
//   - an existing Stream (used as-is)
//
// Example:
//
//	s, err := stream.New("hello")
//	if err != nil {
//	    return err
//	}
//	body, _ := stream.ReadString(s) // "hello"
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

var (
	// ErrUnsupportedBody is returned by New for values that cannot back a stream.
	ErrUnsupportedBody = errors.New("stream: unsupported body type")

	// ErrNotSeekable is returned by Rewind on forward-only streams.
	ErrNotSeekable = errors.New("stream: stream is not seekable")
)

// Stream is a readable message body.
type Stream interface {
	io.ReadCloser

	// Size reports the length in bytes when it is known.
	Size() (int64, bool)

	// Seekable reports whether Rewind can succeed.
	Seekable() bool

	// Rewind moves the read position back to the start.
	Rewind() error
}

// New builds a Stream from body.
//
// Accepted values: nil (empty body), string, []byte, Stream, io.Reader.
// A []byte is copied so later writes by the caller are not observed.
func New(body any) (Stream, error) {
	switch b := body.(type) {
	case nil:
		return FromBytes(nil), nil
	case Stream:
		return b, nil
	case string:
		return FromString(b), nil
	case []byte:
		return FromBytes(bytes.Clone(b)), nil
	case io.Reader:
		return FromReader(b), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedBody, body)
	}
}

// FromString returns an in-memory stream over s.
func FromString(s string) Stream {
	return &memory{r: bytes.NewReader([]byte(s)), size: int64(len(s))}
}

// FromBytes returns an in-memory stream over b. b is not copied.
func FromBytes(b []byte) Stream {
	return &memory{r: bytes.NewReader(b), size: int64(len(b))}
}

// FromReader wraps r. The stream is seekable when r implements io.Seeker
// and its size is known when r is an *os.File or exposes Len() / Size().
func FromReader(r io.Reader) Stream {
	return &reader{src: r}
}

// ReadString reads the whole stream into a string.
//
// Seekable streams are rewound before and after reading so the body can be
// consumed again. Forward-only streams are drained.
func ReadString(s Stream) (string, error) {
	if s.Seekable() {
		if err := s.Rewind(); err != nil {
			return "", err
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.ReadFrom(s); err != nil {
		return "", err
	}

	if s.Seekable() {
		if err := s.Rewind(); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// memory is a seekable in-memory stream.
type memory struct {
	r    *bytes.Reader
	size int64
}

func (m *memory) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memory) Close() error               { return nil }
func (m *memory) Size() (int64, bool)        { return m.size, true }
func (m *memory) Seekable() bool             { return true }

func (m *memory) Rewind() error {
	_, err := m.r.Seek(0, io.SeekStart)
	return err
}

// reader wraps an arbitrary io.Reader.
type reader struct {
	src io.Reader
}

func (r *reader) Read(p []byte) (int, error) { return r.src.Read(p) }

func (r *reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *reader) Size() (int64, bool) {
	switch src := r.src.(type) {
	case *os.File:
		info, err := src.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return 0, false
		}
		return info.Size(), true
	case interface{ Size() int64 }:
		return src.Size(), true
	case interface{ Len() int }:
		return int64(src.Len()), true
	}
	return 0, false
}

func (r *reader) Seekable() bool {
	_, ok := r.src.(io.Seeker)
	return ok
}

func (r *reader) Rewind() error {
	s, ok := r.src.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	_, err := s.Seek(0, io.SeekStart)
	return err
}
