// Package adapter builds core.ServerRequest values from the request types
// of net/http, gin, echo, fiber and fasthttp, and serves core.Handler
// through them.
//
// Adapters copy what the caller or framework already parsed. They never
// read or parse request bodies: the parsed body and uploaded files are
// only filled in when http.Request.ParseForm or ParseMultipartForm ran
// before the adapter.
package adapter

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/serverrequest/core"
	"github.com/yourusername/serverrequest/params"
	"github.com/yourusername/serverrequest/upload"
)

// Config holds adapter configuration.
type Config struct {
	// ErrorHandler answers handler errors and requests that cannot be
	// converted (default: core.DefaultErrorHandler). For conversion
	// failures it receives a nil request.
	ErrorHandler core.ErrorHandler

	// MaxBodyBytes caps the request body through http.MaxBytesReader.
	// Zero means no limit.
	MaxBodyBytes int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		ErrorHandler: core.DefaultErrorHandler,
	}
}

// Handler serves h over net/http.
//
// Example:
//
//	h := core.Chain(api, middleware.Recovery(), middleware.RequestID())
//	http.ListenAndServe(":8080", adapter.Handler(h, adapter.DefaultConfig()))
func Handler(h core.Handler, config Config) http.Handler {
	if config.ErrorHandler == nil {
		config.ErrorHandler = core.DefaultErrorHandler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
		}
		serve(w, r, h, config, nil)
	})
}

// serve converts r, attaches attrs and runs h.
func serve(w http.ResponseWriter, r *http.Request, h core.Handler, config Config, attrs map[string]string) {
	req, err := FromHTTP(r)
	if err != nil {
		config.ErrorHandler(w, nil, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	req = withAttributes(req, attrs)

	if err := h(w, req); err != nil {
		config.ErrorHandler(w, req, err)
	}
}

// FromHTTP converts r into a ServerRequest.
//
// Server params follow the CGI names: REMOTE_ADDR, REMOTE_PORT,
// REQUEST_METHOD, REQUEST_URI, SERVER_PROTOCOL, SERVER_NAME, SERVER_PORT,
// HTTP_HOST, HTTPS, QUERY_STRING, REQUEST_TIME, REQUEST_TIME_FLOAT,
// CONTENT_TYPE, CONTENT_LENGTH and one HTTP_* entry per header.
func FromHTTP(r *http.Request) (*core.ServerRequest, error) {
	return fromHTTP(r, time.Now())
}

func fromHTTP(r *http.Request, now time.Time) (*core.ServerRequest, error) {
	opts := core.Options{
		Method:          r.Method,
		URI:             requestURL(r),
		Headers:         r.Header,
		ProtocolVersion: protocolVersion(r),
		ServerParams:    serverParams(r, now),
		CookieParams:    cookieParams(r),
		QueryParams:     params.Nest(r.URL.Query()),
	}
	if r.Body != nil && r.Body != http.NoBody {
		opts.Body = r.Body
	}
	if r.PostForm != nil {
		opts.ParsedBody = params.Nest(r.PostForm)
	}
	if r.MultipartForm != nil {
		opts.UploadedFiles = upload.FromMultipartForm(r.MultipartForm)
	}
	return core.New(opts)
}

// requestURL returns the absolute request URL when the host is known.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" && u.Host != "" {
		u.Scheme = scheme(r)
	}
	return &u
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// protocolVersion turns ProtoMajor/ProtoMinor into "1.0", "1.1", "2" or "3".
func protocolVersion(r *http.Request) string {
	switch r.ProtoMajor {
	case 0:
		return ""
	case 1:
		return "1." + strconv.Itoa(r.ProtoMinor)
	default:
		return strconv.Itoa(r.ProtoMajor)
	}
}

func serverParams(r *http.Request, now time.Time) map[string]any {
	sp := map[string]any{
		"REQUEST_METHOD":     r.Method,
		"REQUEST_URI":        requestURI(r),
		"SERVER_PROTOCOL":    r.Proto,
		"HTTP_HOST":          r.Host,
		"QUERY_STRING":       r.URL.RawQuery,
		"REQUEST_TIME":       now.Unix(),
		"REQUEST_TIME_FLOAT": float64(now.UnixMicro()) / 1e6,
	}

	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		sp["REMOTE_ADDR"] = host
		sp["REMOTE_PORT"] = port
	} else if r.RemoteAddr != "" {
		sp["REMOTE_ADDR"] = r.RemoteAddr
	}

	if r.TLS != nil {
		sp["HTTPS"] = "on"
	}

	name, port := splitHost(r.Host)
	if port == "" {
		port = "80"
		if r.TLS != nil {
			port = "443"
		}
	}
	sp["SERVER_NAME"] = name
	sp["SERVER_PORT"] = port

	for key, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		switch key {
		case "Content-Type":
			sp["CONTENT_TYPE"] = values[0]
		case "Content-Length":
			sp["CONTENT_LENGTH"] = values[0]
		default:
			sp["HTTP_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_"))] = strings.Join(values, ", ")
		}
	}
	return sp
}

func requestURI(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// splitHost splits "host:port", keeping bracketless IPv6 hosts intact.
func splitHost(hostport string) (host, port string) {
	if h, p, err := net.SplitHostPort(hostport); err == nil {
		return h, p
	}
	return strings.Trim(hostport, "[]"), ""
}

// cookieParams keeps the first value when a cookie name repeats.
func cookieParams(r *http.Request) map[string]string {
	cookies := r.Cookies()
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Value
		}
	}
	return out
}

// withAttributes sets route params as attributes in key order.
func withAttributes(req *core.ServerRequest, attrs map[string]string) *core.ServerRequest {
	if len(attrs) == 0 {
		return req
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req = req.WithAttribute(k, attrs[k])
	}
	return req
}
