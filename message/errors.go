package message

import "errors"

// Message errors. Pre-allocated so callers can match them with errors.Is.
var (
	// ErrInvalidHeader indicates a header name that is not an RFC 7230
	// token or a value containing control characters such as CR or LF.
	ErrInvalidHeader = errors.New("message: invalid header")

	// ErrInvalidMethod indicates a method that is empty or not a token.
	ErrInvalidMethod = errors.New("message: invalid method")

	// ErrInvalidProtocol indicates an unsupported protocol version.
	ErrInvalidProtocol = errors.New("message: invalid protocol version")

	// ErrInvalidRequestTarget indicates a request target containing whitespace.
	ErrInvalidRequestTarget = errors.New("message: invalid request target")

	// ErrUnsupportedURI indicates a URI argument of an unsupported type.
	ErrUnsupportedURI = errors.New("message: unsupported URI value")
)
