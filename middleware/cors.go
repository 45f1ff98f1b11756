package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/yourusername/serverrequest/core"
)

// CORS answers Cross-Origin Resource Sharing checks with
// DefaultCORSConfig: any origin, common methods, any header, 24h preflight
// cache and no credentials.
func CORS() core.Middleware {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a CORS middleware for config.
//
// Only OPTIONS requests carrying Access-Control-Request-Method are
// answered as preflights; other OPTIONS requests reach the handler.
//
// Example:
//
//	middleware.CORSWithConfig(middleware.CORSConfig{
//	    AllowOrigins:     []string{"https://app.example.com"},
//	    AllowHeaders:     []string{"Content-Type", "Authorization"},
//	    ExposeHeaders:    []string{"X-Request-ID"},
//	    AllowCredentials: true,
//	})
func CORSWithConfig(config CORSConfig) core.Middleware {
	p := newCORSPolicy(config)

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			h := w.Header()
			origin, allowed := p.origin(r.HeaderLine("Origin"))
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				if origin != "*" {
					h.Add("Vary", "Origin")
				}
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}

			if r.Method() != http.MethodOptions || !r.HasHeader("Access-Control-Request-Method") {
				return next(w, r)
			}

			if allowed {
				h.Set("Access-Control-Allow-Methods", p.methods)
				h.Set("Access-Control-Allow-Headers", p.headers(r))
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
	}
}

// CORSConfig defines configuration for CORS middleware.
type CORSConfig struct {
	// Allowed origins; "*" allows any (default: ["*"])
	AllowOrigins []string

	// Methods listed in preflight answers
	AllowMethods []string

	// Request headers listed in preflight answers. "*" (default) echoes
	// Access-Control-Request-Headers.
	AllowHeaders []string

	// Response headers readable by the client
	ExposeHeaders []string

	// AllowCredentials sends Access-Control-Allow-Credentials. Wildcard
	// origins are then echoed, since "*" is not valid with credentials.
	AllowCredentials bool

	// Preflight cache lifetime in seconds (default: 86400)
	MaxAge int
}

// DefaultCORSConfig returns default CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
			http.MethodPatch, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders: []string{"*"},
		MaxAge:       86400,
	}
}

// corsPolicy is a CORSConfig with its header values precomputed.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	anyHeader   bool
	allowHeader string
	methods     string
	expose      string
	maxAge      string
}

func newCORSPolicy(config CORSConfig) *corsPolicy {
	defaults := DefaultCORSConfig()
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = defaults.AllowOrigins
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = defaults.AllowMethods
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = defaults.AllowHeaders
	}
	if config.MaxAge == 0 {
		config.MaxAge = defaults.MaxAge
	}

	p := &corsPolicy{
		anyOrigin:   slices.Contains(config.AllowOrigins, "*"),
		origins:     make(map[string]struct{}, len(config.AllowOrigins)),
		credentials: config.AllowCredentials,
		anyHeader:   slices.Contains(config.AllowHeaders, "*"),
		allowHeader: strings.Join(config.AllowHeaders, ", "),
		methods:     strings.Join(config.AllowMethods, ", "),
		expose:      strings.Join(config.ExposeHeaders, ", "),
		maxAge:      strconv.Itoa(config.MaxAge),
	}
	for _, o := range config.AllowOrigins {
		p.origins[o] = struct{}{}
	}
	return p
}

// origin returns the Access-Control-Allow-Origin value for a request
// origin, or false when the origin gets no CORS headers.
func (p *corsPolicy) origin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if p.anyOrigin {
		if p.credentials {
			return origin, true
		}
		return "*", true
	}
	if _, ok := p.origins[origin]; ok {
		return origin, true
	}
	return "", false
}

func (p *corsPolicy) headers(r *core.ServerRequest) string {
	if p.anyHeader {
		if requested := r.HeaderLine("Access-Control-Request-Headers"); requested != "" {
			return requested
		}
	}
	return p.allowHeader
}
