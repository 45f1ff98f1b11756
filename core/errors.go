package core

import (
	"errors"
	"fmt"
)

// Errors returned while building or updating a ServerRequest.
var (
	// ErrInvalidUploadedFilesStructure is returned when a leaf of the
	// uploaded-files tree is not an upload.File, or when the tree root is
	// not a map, slice or array.
	ErrInvalidUploadedFilesStructure = errors.New("invalid uploaded files structure")

	// ErrInvalidParsedBody is returned when a parsed body is neither nil,
	// a map, a struct nor a pointer to a struct.
	ErrInvalidParsedBody = errors.New("invalid parsed body")

	// ErrEmptyParsedBody is returned by Bind when there is no parsed body.
	ErrEmptyParsedBody = errors.New("empty parsed body")

	// ErrBind is returned by Bind when the parsed body does not decode into
	// the target.
	ErrBind = errors.New("cannot bind parsed body")
)

// Errors a handler may return to pick a response status through
// DefaultErrorHandler.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrRequestTooLarge  = errors.New("request too large")
)

// ValidationError describes caller input rejected by a ServerRequest
// constructor or setter.
//
// Example:
//
//	_, err := req.WithUploadedFiles(map[string]any{"a": []any{"x"}})
//	var verr *core.ValidationError
//	if errors.As(err, &verr) {
//	    log.Printf("bad leaf %s of type %s", verr.Path, verr.Type)
//	}
type ValidationError struct {
	// Op is the operation that rejected the input (e.g. "New", "WithParsedBody").
	Op string

	// Path locates the offending node inside a tree, e.g. "[docs][1]".
	// Empty when the value itself was rejected.
	Path string

	// Type is the runtime type of the offending value, as printed by %T.
	Type string

	// Err is ErrInvalidUploadedFilesStructure or ErrInvalidParsedBody.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("core: %s: %v: unexpected %s at %s", e.Op, e.Err, e.Type, e.Path)
	}
	return fmt.Sprintf("core: %s: %v: unexpected %s", e.Op, e.Err, e.Type)
}

// Unwrap returns the underlying sentinel so errors.Is works.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
