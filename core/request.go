// Package core provides ServerRequest, an immutable HTTP server request.
//
// A ServerRequest carries the request line, headers, body and protocol
// version of the incoming message plus what the server derived from it:
// server params, cookies, query params, the parsed body, uploaded files and
// request-scoped attributes.
//
// Every With* and Without* method leaves its receiver untouched and returns
// another *ServerRequest, so one request can be shared by any number of
// goroutines without locking:
//
//	req, err := core.New(core.Options{Method: "GET", URI: "/users?page=2"})
//	if err != nil {
//	    return err
//	}
//	authed := req.WithAttribute("user", user) // req is unchanged
package core

import (
	"github.com/yourusername/serverrequest/message"
	"github.com/yourusername/serverrequest/stream"
	"github.com/yourusername/serverrequest/uri"
)

// Options holds the construction inputs of a ServerRequest.
// The zero value builds "GET /" over HTTP/1.1 with an empty body.
type Options struct {
	// Method defaults to GET.
	Method string

	// URI is a string, *uri.URI, *url.URL or nil.
	URI any

	// Body is nil, a string, []byte, io.Reader or stream.Stream.
	Body any

	Headers map[string][]string

	// ProtocolVersion defaults to "1.1".
	ProtocolVersion string

	ServerParams map[string]any
	CookieParams map[string]string

	// QueryParams values are strings, []any or nested map[string]any.
	// Cyclic values are not supported.
	QueryParams map[string]any

	// ParsedBody is nil, a map, a struct or a pointer to a struct. Maps and
	// slices inside it are deep-copied, so they must not contain cycles.
	ParsedBody any

	// UploadedFiles is a tree of maps, slices and arrays whose leaves are
	// upload.File values. The tree must be acyclic.
	UploadedFiles any
}

// ServerRequest is an immutable server-side HTTP request.
//
// Maps held by a ServerRequest are never written once it has been
// returned. Updates clone the affected map; inputs and getter results are
// copies. Uploaded files, structs and other leaves are shared.
type ServerRequest struct {
	req message.Request

	serverParams  map[string]any
	cookieParams  map[string]string
	queryParams   map[string]any
	parsedBody    any
	uploadedFiles any
	attributes    map[string]any
}

// New validates opts and builds a ServerRequest.
//
// Uploaded files and the parsed body are checked before anything else;
// message errors (method, URI, headers, body, protocol) come from the
// message package.
func New(opts Options) (*ServerRequest, error) {
	if err := validateUploadedFiles("New", opts.UploadedFiles); err != nil {
		return nil, err
	}
	if err := checkParsedBody("New", opts.ParsedBody); err != nil {
		return nil, err
	}

	method := opts.Method
	if method == "" {
		method = "GET"
	}
	req, err := message.NewRequest(method, opts.URI, opts.Body, opts.Headers, opts.ProtocolVersion)
	if err != nil {
		return nil, err
	}

	return &ServerRequest{
		req:           req,
		serverParams:  cloneParams(opts.ServerParams),
		cookieParams:  cloneStrings(opts.CookieParams),
		queryParams:   cloneParams(opts.QueryParams),
		parsedBody:    cloneTree(opts.ParsedBody),
		uploadedFiles: cloneTree(opts.UploadedFiles),
		attributes:    map[string]any{},
	}, nil
}

func (r *ServerRequest) clone() *ServerRequest {
	c := *r
	return &c
}

// ServerParams returns a copy of the server params.
func (r *ServerRequest) ServerParams() map[string]any { return cloneParams(r.serverParams) }

// ServerParam returns one server param.
func (r *ServerRequest) ServerParam(name string) (any, bool) {
	v, ok := r.serverParams[name]
	return cloneTree(v), ok
}

// CookieParams returns a copy of the cookies.
func (r *ServerRequest) CookieParams() map[string]string { return cloneStrings(r.cookieParams) }

// CookieParam returns one cookie value.
func (r *ServerRequest) CookieParam(name string) (string, bool) {
	v, ok := r.cookieParams[name]
	return v, ok
}

// WithCookieParams returns a copy whose cookies are exactly cookies.
func (r *ServerRequest) WithCookieParams(cookies map[string]string) *ServerRequest {
	c := r.clone()
	c.cookieParams = cloneStrings(cookies)
	return c
}

// QueryParams returns a deep copy of the query params.
func (r *ServerRequest) QueryParams() map[string]any { return cloneParams(r.queryParams) }

// QueryParam returns one query param. Nested values are copies.
func (r *ServerRequest) QueryParam(name string) (any, bool) {
	v, ok := r.queryParams[name]
	return cloneTree(v), ok
}

// WithQueryParams returns a copy whose query params are exactly query.
// The request URI is not touched.
func (r *ServerRequest) WithQueryParams(query map[string]any) *ServerRequest {
	c := r.clone()
	c.queryParams = cloneParams(query)
	return c
}

// UploadedFiles returns a copy of the uploaded-files tree, or nil.
// The upload.File leaves are shared.
func (r *ServerRequest) UploadedFiles() any { return cloneTree(r.uploadedFiles) }

// WithUploadedFiles validates files and returns a copy holding it.
//
// Every leaf, at any depth, must be an upload.File. On failure the error
// wraps ErrInvalidUploadedFilesStructure and names the first bad leaf.
func (r *ServerRequest) WithUploadedFiles(files any) (*ServerRequest, error) {
	if err := validateUploadedFiles("WithUploadedFiles", files); err != nil {
		return nil, err
	}
	c := r.clone()
	c.uploadedFiles = cloneTree(files)
	return c, nil
}

// ParsedBody returns the parsed body. Maps are copies; structs and
// pointers are returned as stored.
func (r *ServerRequest) ParsedBody() any { return cloneTree(r.parsedBody) }

// WithParsedBody returns a copy holding body, which must be nil, a map,
// a struct or a pointer to a struct. Anything else wraps
// ErrInvalidParsedBody.
func (r *ServerRequest) WithParsedBody(body any) (*ServerRequest, error) {
	if err := checkParsedBody("WithParsedBody", body); err != nil {
		return nil, err
	}
	c := r.clone()
	c.parsedBody = cloneTree(body)
	return c, nil
}

func (r *ServerRequest) withMessage(m message.Request) *ServerRequest {
	c := r.clone()
	c.req = m
	return c
}

// Method returns the request method with its case preserved.
func (r *ServerRequest) Method() string { return r.req.Method() }

// WithMethod returns a copy with another method. The method must be an
// RFC 7230 token.
func (r *ServerRequest) WithMethod(method string) (*ServerRequest, error) {
	m, err := r.req.WithMethod(method)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}

// RequestTarget returns the request target, "/" when nothing is known.
func (r *ServerRequest) RequestTarget() string { return r.req.RequestTarget() }

// WithRequestTarget returns a copy with an explicit request target,
// e.g. "*" or an absolute-form URI.
func (r *ServerRequest) WithRequestTarget(target string) (*ServerRequest, error) {
	m, err := r.req.WithRequestTarget(target)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}

// URI returns the request URI. Never nil.
func (r *ServerRequest) URI() *uri.URI { return r.req.URI() }

// WithURI returns a copy with another URI. The Host header follows the
// new URI unless preserveHost is set and a Host header is already present.
func (r *ServerRequest) WithURI(u *uri.URI, preserveHost bool) (*ServerRequest, error) {
	m, err := r.req.WithURI(u, preserveHost)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}

// ProtocolVersion returns the version number only, e.g. "1.1".
func (r *ServerRequest) ProtocolVersion() string { return r.req.ProtocolVersion() }

// WithProtocolVersion returns a copy with another protocol version.
func (r *ServerRequest) WithProtocolVersion(version string) (*ServerRequest, error) {
	m, err := r.req.WithProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}

// Headers returns a copy of all headers keyed by their original name.
func (r *ServerRequest) Headers() map[string][]string { return r.req.Headers() }

// HasHeader reports whether the header exists. Names are case-insensitive.
func (r *ServerRequest) HasHeader(name string) bool { return r.req.HasHeader(name) }

// Header returns a copy of the values of a header.
func (r *ServerRequest) Header(name string) []string { return r.req.Header(name) }

// HeaderLine returns the values of a header joined by ", ".
func (r *ServerRequest) HeaderLine(name string) string { return r.req.HeaderLine(name) }

// WithHeader returns a copy where name holds exactly values.
func (r *ServerRequest) WithHeader(name string, values ...string) (*ServerRequest, error) {
	m, err := r.req.WithHeader(name, values...)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}

// WithAddedHeader returns a copy with values appended to name.
func (r *ServerRequest) WithAddedHeader(name string, values ...string) (*ServerRequest, error) {
	m, err := r.req.WithAddedHeader(name, values...)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}

// WithoutHeader returns a copy without the header.
func (r *ServerRequest) WithoutHeader(name string) *ServerRequest {
	return r.withMessage(r.req.WithoutHeader(name))
}

// Body returns the body stream. It is shared with copies made by With*
// methods that do not replace it.
func (r *ServerRequest) Body() stream.Stream { return r.req.Body() }

// WithBody returns a copy with another body; see stream.New for the
// accepted types.
func (r *ServerRequest) WithBody(body any) (*ServerRequest, error) {
	m, err := r.req.WithBody(body)
	if err != nil {
		return nil, err
	}
	return r.withMessage(m), nil
}
