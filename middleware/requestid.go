package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/yourusername/serverrequest/core"
)

const (
	// DefaultRequestIDHeader is the header carrying the request id.
	DefaultRequestIDHeader = "X-Request-ID"

	// DefaultRequestIDAttribute is the attribute holding the request id.
	DefaultRequestIDAttribute = "request_id"
)

// RequestID returns a middleware that gives every request an id.
//
// The id is stored as the "request_id" attribute of the request passed
// downstream and echoed in the X-Request-ID response header.
//
// Example:
//
//	h := core.Chain(func(w http.ResponseWriter, r *core.ServerRequest) error {
//	    id := r.Attribute("request_id").(string)
//	    ...
//	}, middleware.RequestID())
func RequestID() core.Middleware {
	return RequestIDWithConfig(DefaultRequestIDConfig())
}

// RequestIDWithConfig returns a middleware with custom request id
// configuration.
func RequestIDWithConfig(config RequestIDConfig) core.Middleware {
	if config.Header == "" {
		config.Header = DefaultRequestIDHeader
	}
	if config.Attribute == "" {
		config.Attribute = DefaultRequestIDAttribute
	}
	if config.Generator == nil {
		config.Generator = uuid.NewString
	}

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			id := ""
			if config.TrustIncoming {
				id = r.HeaderLine(config.Header)
				if len(id) > 128 || !httpguts.ValidHeaderFieldValue(id) {
					id = ""
				}
			}
			if id == "" {
				id = config.Generator()
			}

			w.Header().Set(config.Header, id)
			return next(w, r.WithAttribute(config.Attribute, id))
		}
	}
}

// RequestIDConfig defines configuration for request id middleware.
type RequestIDConfig struct {
	// Header is the request and response header name (default: X-Request-ID)
	Header string

	// Attribute is the request attribute name (default: "request_id")
	Attribute string

	// Generator creates new ids (default: random UUID v4)
	Generator func() string

	// TrustIncoming reuses an id sent by the client, e.g. from a proxy
	// that already assigned one. Default: false
	TrustIncoming bool
}

// DefaultRequestIDConfig returns default request id configuration.
func DefaultRequestIDConfig() RequestIDConfig {
	return RequestIDConfig{
		Header:    DefaultRequestIDHeader,
		Attribute: DefaultRequestIDAttribute,
		Generator: uuid.NewString,
	}
}
