// Package middleware provides core.Middleware implementations for logging,
// panic recovery, request ids, rate limiting, CORS, body decompression and
// Prometheus metrics.
//
// Requests are immutable, so middleware that adds information for later
// handlers (request ids, decoded bodies) calls next with a derived request.
// Middleware that needs information produced by later handlers (status,
// bytes written) reads it from the response writer.
package middleware

import "net/http"

// statusWriter records the status code and body size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

// wrapWriter returns w itself when it already records status.
func wrapWriter(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush passes through to the underlying writer when it supports it.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// written reports whether a status has been sent.
func (w *statusWriter) written() bool {
	return w.status != 0
}
