// Package uri implements the URI value used by server requests.
//
// A URI is immutable: every With* method returns a modified copy.
package uri

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

var (
	// ErrInvalidURI is returned when a string cannot be parsed as a URI.
	ErrInvalidURI = errors.New("uri: invalid URI")

	// ErrInvalidPort is returned for ports outside 1-65535.
	ErrInvalidPort = errors.New("uri: invalid port")

	// ErrInvalidHost is returned for hosts that fail IDNA conversion.
	ErrInvalidHost = errors.New("uri: invalid host")
)

// hostProfile maps hosts the way browsers look them up but tolerates
// underscores, which appear in container and service-discovery names.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.Transitional(false))

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
}

// URI is a parsed URI reference.
type URI struct {
	scheme   string
	userInfo string
	host     string
	port     int
	path     string
	query    string
	fragment string
}

// Parse parses raw into a URI. Scheme and host are lower-cased and
// internationalised host names are converted to their ASCII form.
func Parse(raw string) (*URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	return FromURL(u)
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) *URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// FromURL converts a *url.URL.
func FromURL(u *url.URL) (*URI, error) {
	out := &URI{
		scheme:   strings.ToLower(u.Scheme),
		path:     u.EscapedPath(),
		query:    u.RawQuery,
		fragment: u.EscapedFragment(),
	}
	if u.User != nil {
		out.userInfo = u.User.String()
	}

	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return nil, err
	}
	out.host = host

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, p)
		}
		out.port = port
	}
	return out, nil
}

func normalizeHost(host string) (string, error) {
	if host == "" {
		return "", nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(host), nil
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidHost, host, err)
	}
	return strings.ToLower(ascii), nil
}

// Scheme returns the lower-cased scheme, or "".
func (u *URI) Scheme() string { return u.scheme }

// UserInfo returns "user" or "user:password", or "".
func (u *URI) UserInfo() string { return u.userInfo }

// Host returns the lower-cased host without port, or "".
func (u *URI) Host() string { return u.host }

// Port returns the port when it is set and not the scheme's default.
func (u *URI) Port() (int, bool) {
	if u.port == 0 || defaultPorts[u.scheme] == u.port {
		return 0, false
	}
	return u.port, true
}

// Path returns the escaped path.
func (u *URI) Path() string { return u.path }

// Query returns the raw query string without '?'.
func (u *URI) Query() string { return u.query }

// Fragment returns the escaped fragment without '#'.
func (u *URI) Fragment() string { return u.fragment }

// Authority returns "[user-info@]host[:port]", or "" without a host.
func (u *URI) Authority() string {
	if u.host == "" {
		return ""
	}
	var b strings.Builder
	if u.userInfo != "" {
		b.WriteString(u.userInfo)
		b.WriteByte('@')
	}
	b.WriteString(hostLiteral(u.host))
	if port, ok := u.Port(); ok {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(port))
	}
	return b.String()
}

// HostPort returns the host with the port appended when one is set.
// This is the value used for the Host header.
func (u *URI) HostPort() string {
	if u.host == "" {
		return ""
	}
	if port, ok := u.Port(); ok {
		return net.JoinHostPort(u.host, strconv.Itoa(port))
	}
	return hostLiteral(u.host)
}

func hostLiteral(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// String reassembles the URI reference.
func (u *URI) String() string {
	var b strings.Builder
	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}
	if auth := u.Authority(); auth != "" {
		b.WriteString("//")
		b.WriteString(auth)
		if u.path != "" && !strings.HasPrefix(u.path, "/") {
			b.WriteByte('/')
		}
	}
	b.WriteString(u.path)
	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}
	return b.String()
}

// URL converts back to a *url.URL.
func (u *URI) URL() *url.URL {
	out, err := url.Parse(u.String())
	if err != nil {
		return &url.URL{Path: u.path, RawQuery: u.query}
	}
	return out
}

// WithScheme returns a copy with the scheme replaced.
func (u *URI) WithScheme(scheme string) *URI {
	c := *u
	c.scheme = strings.ToLower(scheme)
	return &c
}

// WithUserInfo returns a copy with user info replaced. An empty user clears it.
func (u *URI) WithUserInfo(user, password string) *URI {
	c := *u
	switch {
	case user == "":
		c.userInfo = ""
	case password == "":
		c.userInfo = url.User(user).String()
	default:
		c.userInfo = url.UserPassword(user, password).String()
	}
	return &c
}

// WithHost returns a copy with the host replaced.
func (u *URI) WithHost(host string) (*URI, error) {
	h, err := normalizeHost(strings.Trim(host, "[]"))
	if err != nil {
		return nil, err
	}
	c := *u
	c.host = h
	return &c, nil
}

// WithPort returns a copy with the port replaced. 0 removes the port.
func (u *URI) WithPort(port int) (*URI, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	c := *u
	c.port = port
	return &c, nil
}

// WithPath returns a copy with the path replaced.
func (u *URI) WithPath(path string) *URI {
	c := *u
	c.path = path
	return &c
}

// WithQuery returns a copy with the query replaced. A leading '?' is dropped.
func (u *URI) WithQuery(query string) *URI {
	c := *u
	c.query = strings.TrimPrefix(query, "?")
	return &c
}

// WithFragment returns a copy with the fragment replaced. A leading '#' is dropped.
func (u *URI) WithFragment(fragment string) *URI {
	c := *u
	c.fragment = strings.TrimPrefix(fragment, "#")
	return &c
}
