package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedEncoding is returned by Decode for unknown content codings.
var ErrUnsupportedEncoding = errors.New("stream: unsupported content encoding")

// Decode wraps s with decoders for the given Content-Encoding header value.
//
// Codings are listed in the order they were applied, so they are removed
// right to left. "identity" and the empty string are no-ops.
//
// Supported: gzip, x-gzip, deflate, zstd, br.
//
// The returned stream is forward-only and closes s when closed.
func Decode(s Stream, contentEncoding string) (Stream, error) {
	codings := splitCodings(contentEncoding)
	if len(codings) == 0 {
		return s, nil
	}

	var (
		r       io.Reader = s
		closers []io.Closer
	)
	for i := len(codings) - 1; i >= 0; i-- {
		dec, closer, err := decoder(codings[i], r)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		r = dec
	}

	return &decoded{r: r, closers: closers, src: s}, nil
}

func splitCodings(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "identity" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func decoder(coding string, r io.Reader) (io.Reader, io.Closer, error) {
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("stream: gzip: %w", err)
		}
		return zr, zr, nil
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("stream: deflate: %w", err)
		}
		return zr, zr, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("stream: zstd: %w", err)
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	case "br":
		return brotli.NewReader(r), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, coding)
	}
}

// decoded is a forward-only stream reading through one or more decoders.
type decoded struct {
	r       io.Reader
	closers []io.Closer
	src     Stream
}

func (d *decoded) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *decoded) Size() (int64, bool)        { return 0, false }
func (d *decoded) Seekable() bool             { return false }
func (d *decoded) Rewind() error              { return ErrNotSeekable }

func (d *decoded) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.src.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
