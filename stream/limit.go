package stream

import "net/http"

// Limit returns a stream that reads at most n bytes from s. Reading past
// n fails with *http.MaxBytesError, the error http.MaxBytesReader reports,
// so callers can map both to 413 the same way. n <= 0 returns s unchanged.
func Limit(s Stream, n int64) Stream {
	if n <= 0 {
		return s
	}
	return &limited{s: s, limit: n, left: n}
}

type limited struct {
	s     Stream
	limit int64
	left  int64
	err   error
}

func (l *limited) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	// One extra byte tells a body of exactly limit bytes from a longer one.
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.s.Read(p)
	if int64(n) <= l.left {
		l.left -= int64(n)
		if err != nil {
			l.err = err
		}
		return n, err
	}

	n = int(l.left)
	l.left = 0
	l.err = &http.MaxBytesError{Limit: l.limit}
	return n, l.err
}

func (l *limited) Size() (int64, bool) {
	size, ok := l.s.Size()
	if ok && size > l.limit {
		return 0, false
	}
	return size, ok
}

func (l *limited) Seekable() bool { return l.s.Seekable() }

func (l *limited) Rewind() error {
	if err := l.s.Rewind(); err != nil {
		return err
	}
	l.left = l.limit
	l.err = nil
	return nil
}

func (l *limited) Close() error { return l.s.Close() }

var _ Stream = (*limited)(nil)
