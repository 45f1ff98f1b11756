package core

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/yourusername/serverrequest/pool/buffers"
)

// Handler serves one request.
//
// A handler writes its response to w. A returned error is handed to an
// ErrorHandler, which writes the response instead.
//
// Example:
//
//	func getUser(w http.ResponseWriter, r *core.ServerRequest) error {
//	    id, _ := r.Attribute("id").(string)
//	    user, err := db.GetUser(id)
//	    if err != nil {
//	        return core.ErrNotFound
//	    }
//	    return core.WriteJSON(w, 200, user)
//	}
type Handler func(w http.ResponseWriter, r *ServerRequest) error

// Middleware wraps a Handler.
//
// Since requests are immutable, middleware passes information downstream
// by calling next with a derived request:
//
//	func Tenant() core.Middleware {
//	    return func(next core.Handler) core.Handler {
//	        return func(w http.ResponseWriter, r *core.ServerRequest) error {
//	            return next(w, r.WithAttribute("tenant", r.HeaderLine("X-Tenant")))
//	        }
//	    }
//	}
type Middleware func(Handler) Handler

// ErrorHandler writes the response for an error returned by a Handler.
type ErrorHandler func(w http.ResponseWriter, r *ServerRequest, err error)

// Chain wraps h so that mw[0] runs first.
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// DefaultErrorHandler maps errors to a status and writes {"error": "..."}.
//
// Input errors (ValidationError, Bind and validator failures,
// ErrBadRequest) become 400. Unknown errors become 500.
func DefaultErrorHandler(w http.ResponseWriter, r *ServerRequest, err error) {
	status := StatusFor(err)
	if werr := WriteJSON(w, status, map[string]string{"error": http.StatusText(status)}); werr != nil {
		log.Printf("core: write error response: %v", werr)
	}
}

// StatusFor returns the HTTP status DefaultErrorHandler uses for err.
func StatusFor(err error) int {
	var (
		verr     *ValidationError
		fields   validator.ValidationErrors
		tooLarge *http.MaxBytesError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr), errors.As(err, &fields),
		errors.Is(err, ErrBind), errors.Is(err, ErrEmptyParsedBody), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrRequestTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON encodes v into a pooled buffer and writes it with status.
// Nothing is written when encoding fails.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	buf := buffers.Acquire(0)
	defer buffers.Release(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
