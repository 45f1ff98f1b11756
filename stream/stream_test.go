package stream

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bytes", []byte("bytes"), "bytes"},
		{"reader", strings.NewReader("reader"), "reader"},
		{"stream", FromString("stream"), "stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := ReadString(s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(42)
	if !errors.Is(err, ErrUnsupportedBody) {
		t.Fatalf("expected ErrUnsupportedBody, got %v", err)
	}
	if !strings.Contains(err.Error(), "int") {
		t.Errorf("expected type name in error, got %q", err.Error())
	}
}

func TestNewStreamIsReused(t *testing.T) {
	s := FromString("x")
	got, err := New(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != s {
		t.Error("expected the same stream instance")
	}
}

func TestNewBytesAreCopied(t *testing.T) {
	b := []byte("abc")
	s, _ := New(b)
	b[0] = 'z'

	got, _ := ReadString(s)
	if got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}

func TestReadStringRewinds(t *testing.T) {
	s := FromString("twice")

	for i := 0; i < 2; i++ {
		got, err := ReadString(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "twice" {
			t.Errorf("read %d: expected twice, got %q", i, got)
		}
	}
}

func TestSize(t *testing.T) {
	if n, ok := FromString("four").Size(); !ok || n != 4 {
		t.Errorf("expected (4, true), got (%d, %v)", n, ok)
	}

	if _, ok := FromReader(io.MultiReader()).Size(); ok {
		t.Error("expected unknown size for plain reader")
	}

	if n, ok := FromReader(strings.NewReader("abc")).Size(); !ok || n != 3 {
		t.Errorf("expected (3, true), got (%d, %v)", n, ok)
	}
}

func TestFileHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.txt")
	if err := os.WriteFile(path, []byte("from disk"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	s, err := New(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if n, ok := s.Size(); !ok || n != 9 {
		t.Errorf("expected (9, true), got (%d, %v)", n, ok)
	}
	if !s.Seekable() {
		t.Error("expected file stream to be seekable")
	}
	got, _ := ReadString(s)
	if got != "from disk" {
		t.Errorf("expected 'from disk', got %q", got)
	}
}

func TestRewindForwardOnly(t *testing.T) {
	s := FromReader(io.MultiReader(strings.NewReader("x")))
	if s.Seekable() {
		t.Error("expected forward-only stream")
	}
	if err := s.Rewind(); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("expected ErrNotSeekable, got %v", err)
	}
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func brotlied(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeGzip(t *testing.T) {
	s, err := Decode(FromBytes(gzipped(t, "payload")), "gzip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	got, err := ReadString(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "payload" {
		t.Errorf("expected payload, got %q", got)
	}
	if s.Seekable() {
		t.Error("expected decoded stream to be forward-only")
	}
}

func TestDecodeZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll([]byte("zstd body"), nil)
	_ = enc.Close()

	s, err := Decode(FromBytes(compressed), "zstd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	got, _ := ReadString(s)
	if got != "zstd body" {
		t.Errorf("expected 'zstd body', got %q", got)
	}
}

func TestDecodeStacked(t *testing.T) {
	// gzip applied first, then br.
	body := brotlied(t, gzipped(t, "layered"))

	s, err := Decode(FromBytes(body), "gzip, br")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	got, _ := ReadString(s)
	if got != "layered" {
		t.Errorf("expected layered, got %q", got)
	}
}

func TestDecodeIdentity(t *testing.T) {
	src := FromString("plain")
	for _, enc := range []string{"", "identity", " Identity "} {
		s, err := Decode(src, enc)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", enc, err)
		}
		if s != src {
			t.Errorf("%q: expected source stream to be returned", enc)
		}
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode(FromString("x"), "compress")
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("expected ErrUnsupportedEncoding, got %v", err)
	}
}

func TestDecodeInvalidGzip(t *testing.T) {
	if _, err := Decode(FromString("not gzip"), "gzip"); err == nil {
		t.Error("expected error for invalid gzip header")
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		want    string
		tooLong bool
	}{
		{"under", "abc", 5, "abc", false},
		{"exact", "abcde", 5, "abcde", false},
		{"over", "abcdefgh", 5, "abcde", true},
		{"no limit", "abcdefgh", 0, "abcdefgh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := io.ReadAll(Limit(FromString(tt.body), tt.limit))
			if string(data) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, data)
			}

			var tooLarge *http.MaxBytesError
			if got := errors.As(err, &tooLarge); got != tt.tooLong {
				t.Fatalf("expected MaxBytesError %v, got %v", tt.tooLong, err)
			}
			if tt.tooLong && tooLarge.Limit != tt.limit {
				t.Errorf("expected limit %d, got %d", tt.limit, tooLarge.Limit)
			}
		})
	}
}

func TestLimitDecoded(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write(bytes.Repeat([]byte{0}, 1<<20))
	_ = zw.Close()

	decoded, err := Decode(FromBytes(buf.Bytes()), "gzip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer decoded.Close()

	n, err := io.Copy(io.Discard, Limit(decoded, 4096))
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected MaxBytesError, got %v", err)
	}
	if n != 4096 {
		t.Errorf("expected 4096 bytes before the limit, got %d", n)
	}
}
