// Command reqdump converts raw HTTP requests into server requests and
// prints their JSON snapshot.
//
// Usage:
//
//	reqdump [-form] [-indent] [-in request.txt]
//	reqdump -serve :8080 [-config reqdump.yaml]
//
// In file mode the request is read from -in (or stdin), request ids are
// assigned and compressed bodies are decoded before printing. In server
// mode every request is answered with its own snapshot and Prometheus
// metrics are exposed on /metrics.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/serverrequest/adapter"
	"github.com/yourusername/serverrequest/core"
	"github.com/yourusername/serverrequest/middleware"
	"github.com/yourusername/serverrequest/stream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("reqdump: %v", err)
	}

	if config.Serve != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runServer(ctx, config); err != nil {
			log.Fatalf("reqdump: %v", err)
		}
		return
	}

	in := io.Reader(os.Stdin)
	if config.Input != "" && config.Input != "-" {
		f, err := os.Open(config.Input)
		if err != nil {
			log.Fatalf("reqdump: %v", err)
		}
		defer f.Close()
		in = f
	}

	if err := dump(config, in, os.Stdout); err != nil {
		log.Fatalf("reqdump: %v", err)
	}
}

// dumpOutput is what both modes print for a request.
type dumpOutput struct {
	Request *core.ServerRequest `json:"request"`
	Body    string              `json:"body,omitempty"`
}

// snapshot reads the (already decoded) body and builds the output.
func snapshot(r *core.ServerRequest) (dumpOutput, error) {
	out := dumpOutput{Request: r}
	if body := r.Body(); body != nil {
		text, err := stream.ReadString(body)
		if err != nil {
			return out, fmt.Errorf("read body: %w", err)
		}
		out.Body = text
	}
	return out, nil
}

// dump reads one raw request from in and writes its snapshot to out.
func dump(config Config, in io.Reader, out io.Writer) error {
	r, err := http.ReadRequest(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	defer r.Body.Close()

	if config.ParseForm {
		if err := parseForm(r, config.MaxMemory); err != nil {
			return err
		}
	}

	req, err := adapter.FromHTTP(r)
	if err != nil {
		return err
	}

	var result dumpOutput
	h := core.Chain(func(w http.ResponseWriter, r *core.ServerRequest) error {
		var err error
		result, err = snapshot(r)
		return err
	},
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{TrustIncoming: config.TrustRequestID}),
		middleware.DecompressWithConfig(middleware.DecompressConfig{MaxDecodedBytes: config.MaxBodyBytes}),
	)

	w := newDiscardWriter()
	if err := h(w, req); err != nil {
		return err
	}
	if w.status >= http.StatusBadRequest {
		return fmt.Errorf("request rejected with status %d", w.status)
	}

	return encode(out, result, config.Indent)
}

func encode(out io.Writer, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}

// parseForm fills PostForm and MultipartForm. Bodies that are not
// multipart only get ParseForm.
func parseForm(r *http.Request, maxMemory int64) error {
	err := r.ParseMultipartForm(maxMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

// newHandler builds the server-mode handler tree.
func newHandler(config Config, reg *prometheus.Registry) http.Handler {
	mw := []core.Middleware{
		middleware.Recovery(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{TrustIncoming: config.TrustRequestID}),
		middleware.LoggerWithConfig(middleware.LoggerConfig{
			Output:    os.Stderr,
			Format:    config.LogFormat,
			SkipPaths: []string{"/metrics"},
		}),
		middleware.MetricsWithConfig(middleware.MetricsConfig{Registerer: reg, Namespace: "reqdump"}),
	}
	if len(config.AllowOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowOrigins = config.AllowOrigins
		mw = append(mw, middleware.CORSWithConfig(cors))
	}
	if config.RateLimit.RequestsPerSecond > 0 {
		mw = append(mw, middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			RequestsPerSecond: config.RateLimit.RequestsPerSecond,
			Burst:             config.RateLimit.Burst,
		}))
	}
	// Decoded bodies get the same cap as the bytes on the wire.
	mw = append(mw, middleware.DecompressWithConfig(middleware.DecompressConfig{
		MaxDecodedBytes: config.MaxBodyBytes,
	}))

	snapshots := core.Chain(func(w http.ResponseWriter, r *core.ServerRequest) error {
		out, err := snapshot(r)
		if err != nil {
			return requestError(err)
		}
		return core.WriteJSON(w, http.StatusOK, out)
	}, mw...)

	app := adapter.Handler(snapshots, adapter.Config{MaxBodyBytes: config.MaxBodyBytes})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.ParseForm {
			// Forms are parsed before the adapter limits the body.
			if config.MaxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
			}
			if err := parseForm(r, config.MaxMemory); err != nil {
				core.DefaultErrorHandler(w, nil, requestError(err))
				return
			}
		}
		app.ServeHTTP(w, r)
	}))
	return mux
}

// requestError classifies a failure to read the request body.
func requestError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %v", core.ErrRequestTooLarge, err)
	}
	return fmt.Errorf("%w: %v", core.ErrBadRequest, err)
}

func runServer(ctx context.Context, config Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &http.Server{
		Addr:              config.Serve,
		Handler:           newHandler(config, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("reqdump: listening on %s", config.Serve)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// discardWriter is the response writer used in file mode. Middleware may
// still set headers or reject the request; only the status is kept.
type discardWriter struct {
	header http.Header
	status int
}

func newDiscardWriter() *discardWriter {
	return &discardWriter{header: make(http.Header)}
}

func (w *discardWriter) Header() http.Header { return w.header }

func (w *discardWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *discardWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return len(p), nil
}
