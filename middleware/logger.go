package middleware

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/yourusername/serverrequest/core"
	"github.com/yourusername/serverrequest/pool/buffers"
)

// Logger writes one JSON line per request to stdout with method, path,
// status, duration, response size and the request id when RequestID ran
// earlier in the chain:
//
//	{"time":"2025-11-13T10:30:00Z","method":"GET","path":"/users","status":200,"duration_ms":15,"bytes":1234,"request_id":"..."}
func Logger() core.Middleware {
	return LoggerWithConfig(DefaultLoggerConfig())
}

// LoggerWithConfig is Logger with custom output and format.
//
//	middleware.LoggerWithConfig(middleware.LoggerConfig{
//	    Output:    os.Stderr,
//	    Format:    "text",
//	    SkipPaths: []string{"/healthz", "/metrics"},
//	})
func LoggerWithConfig(config LoggerConfig) core.Middleware {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Format == "" {
		config.Format = "json"
	}
	if config.TimeFormat == "" {
		config.TimeFormat = time.RFC3339
	}
	if config.RequestIDAttribute == "" {
		config.RequestIDAttribute = DefaultRequestIDAttribute
	}

	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}
	write := logJSON
	if config.Format == "text" {
		write = logText
	}

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			path := r.URI().Path()
			if _, ok := skip[path]; ok {
				return next(w, r)
			}

			start := time.Now()
			sw := wrapWriter(w)
			err := next(sw, r)

			entry := LogEntry{
				Time:       start.Format(config.TimeFormat),
				Method:     r.Method(),
				Path:       path,
				Status:     sw.status,
				DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
				Bytes:      sw.bytes,
				RequestID:  requestIDOf(sw, r, config.RequestIDAttribute),
			}
			if entry.Status == 0 {
				entry.Status = core.StatusFor(err)
			}
			if err != nil {
				entry.Error = err.Error()
			}
			write(config.Output, entry)

			return err
		}
	}
}

// requestIDOf prefers the attribute on r and falls back to the response
// header, which RequestID also sets when it runs after the logger.
func requestIDOf(w http.ResponseWriter, r *core.ServerRequest, attr string) string {
	if id, ok := r.Attribute(attr).(string); ok {
		return id
	}
	return w.Header().Get(DefaultRequestIDHeader)
}

// LoggerConfig defines configuration for logger middleware.
type LoggerConfig struct {
	// Destination for log lines (default: stdout)
	Output io.Writer

	// "json" (default) or "text"
	Format string

	// Paths served without a log line
	SkipPaths []string

	// Layout of the time field (default: time.RFC3339)
	TimeFormat string

	// RequestIDAttribute is the attribute holding the request id
	// (default: "request_id")
	RequestIDAttribute string
}

// LogEntry is one JSON log line.
type LogEntry struct {
	Time       string  `json:"time"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	Status     int     `json:"status"`
	DurationMS float64 `json:"duration_ms"`
	Bytes      int     `json:"bytes"`
	RequestID  string  `json:"request_id,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// DefaultLoggerConfig returns default logger configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Output:             os.Stdout,
		Format:             "json",
		SkipPaths:          []string{},
		TimeFormat:         time.RFC3339,
		RequestIDAttribute: DefaultRequestIDAttribute,
	}
}

// logJSON and logText build the whole line first so concurrent requests
// never interleave within a line.
func logJSON(w io.Writer, entry LogEntry) {
	buf := buffers.Acquire(256)
	defer buffers.Release(buf)

	if err := json.NewEncoder(buf).Encode(entry); err != nil {
		log.Printf("Failed to encode log entry: %v", err)
		return
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Failed to write log: %v", err)
	}
}

func logText(w io.Writer, entry LogEntry) {
	buf := buffers.Acquire(256)
	defer buffers.Release(buf)

	fmt.Fprintf(buf, "%s %s - %d - %.3fms", entry.Method, entry.Path, entry.Status, entry.DurationMS)
	if entry.RequestID != "" {
		fmt.Fprintf(buf, " - id=%s", entry.RequestID)
	}
	if entry.Error != "" {
		fmt.Fprintf(buf, " - ERROR: %s", entry.Error)
	}
	buf.WriteByte('\n')

	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Failed to write log: %v", err)
	}
}
