package message

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/yourusername/serverrequest/uri"
)

// Request adds the request line to Message.
//
// Request shadows Message's With* methods so that they return a Request.
type Request struct {
	Message

	method string
	target string
	uri    *uri.URI
}

// NewRequest is the single initialisation entry point for requests.
//
// u accepts a string (parsed), *uri.URI (used as-is), *url.URL or nil.
// body accepts anything stream.New accepts. When the URI carries a host and
// headers have no Host, Host is derived from the URI.
func NewRequest(method string, u any, body any, headers map[string][]string, protocol string) (Request, error) {
	if !isToken(method) {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	parsed, err := toURI(u)
	if err != nil {
		return Request{}, err
	}

	m, err := NewMessage(body, headers, protocol)
	if err != nil {
		return Request{}, err
	}

	r := Request{Message: m, method: method, uri: parsed}
	if !r.header.Has("Host") || r.header.Line("Host") == "" {
		if err := r.updateHostFromURI(); err != nil {
			return Request{}, err
		}
	}
	return r, nil
}

func toURI(u any) (*uri.URI, error) {
	switch v := u.(type) {
	case nil:
		return new(uri.URI), nil
	case *uri.URI:
		if v == nil {
			return new(uri.URI), nil
		}
		return v, nil
	case string:
		return uri.Parse(v)
	case *url.URL:
		return uri.FromURL(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedURI, u)
	}
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}

func (r *Request) updateHostFromURI() error {
	host := r.uri.HostPort()
	if host == "" {
		return nil
	}
	h, err := r.header.withFirst("Host", host)
	if err != nil {
		return err
	}
	r.header = h
	return nil
}

// Method returns the request method, case preserved.
func (r Request) Method() string { return r.method }

// WithMethod returns a copy with the method replaced.
func (r Request) WithMethod(method string) (Request, error) {
	if !isToken(method) {
		return r, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	r.method = method
	return r, nil
}

// RequestTarget returns the explicit target when one was set, otherwise
// the origin-form built from the URI ("/" when the path is empty).
func (r Request) RequestTarget() string {
	if r.target != "" {
		return r.target
	}
	u := r.URI()
	target := u.Path()
	if target == "" {
		target = "/"
	}
	if q := u.Query(); q != "" {
		target += "?" + q
	}
	return target
}

// WithRequestTarget returns a copy with an explicit request target.
func (r Request) WithRequestTarget(target string) (Request, error) {
	if strings.ContainsAny(target, " \t\r\n") {
		return r, fmt.Errorf("%w: %q", ErrInvalidRequestTarget, target)
	}
	r.target = target
	return r, nil
}

// URI returns the request URI. Never nil.
func (r Request) URI() *uri.URI {
	if r.uri == nil {
		return new(uri.URI)
	}
	return r.uri
}

// WithURI returns a copy with the URI replaced.
//
// Unless preserveHost is set, the Host header follows the new URI's host.
// With preserveHost the Host header is only filled in when it is missing
// or empty.
func (r Request) WithURI(u *uri.URI, preserveHost bool) (Request, error) {
	if u == nil {
		u = new(uri.URI)
	}
	r.uri = u
	if preserveHost && r.header.Line("Host") != "" {
		return r, nil
	}
	if err := r.updateHostFromURI(); err != nil {
		return r, err
	}
	return r, nil
}

// WithProtocolVersion returns a copy with the protocol version replaced.
func (r Request) WithProtocolVersion(version string) (Request, error) {
	m, err := r.Message.WithProtocolVersion(version)
	if err != nil {
		return r, err
	}
	r.Message = m
	return r, nil
}

// WithHeader returns a copy where name holds exactly values.
func (r Request) WithHeader(name string, values ...string) (Request, error) {
	m, err := r.Message.WithHeader(name, values...)
	if err != nil {
		return r, err
	}
	r.Message = m
	return r, nil
}

// WithAddedHeader returns a copy with values appended to name.
func (r Request) WithAddedHeader(name string, values ...string) (Request, error) {
	m, err := r.Message.WithAddedHeader(name, values...)
	if err != nil {
		return r, err
	}
	r.Message = m
	return r, nil
}

// WithoutHeader returns a copy without name.
func (r Request) WithoutHeader(name string) Request {
	r.Message = r.Message.WithoutHeader(name)
	return r
}

// WithBody returns a copy with the body replaced.
func (r Request) WithBody(body any) (Request, error) {
	m, err := r.Message.WithBody(body)
	if err != nil {
		return r, err
	}
	r.Message = m
	return r, nil
}
