package middleware

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/yourusername/serverrequest/core"
)

// PanicError is returned by Recovery when a handler panicked after the
// response had started and no status could be sent anymore.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic after response started: %v", e.Value)
}

// Recovery turns panics in the chain into a 500 JSON response and logs
// them with a stack trace.
//
//	h := core.Chain(handler, middleware.Recovery(), middleware.Logger())
func Recovery() core.Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig())
}

// RecoveryWithConfig is Recovery with custom logging and response.
//
//	middleware.RecoveryWithConfig(middleware.RecoveryConfig{
//	    DisableStackLog: true,
//	    Handler: func(w http.ResponseWriter, r *core.ServerRequest, p any) error {
//	        return core.WriteJSON(w, 503, map[string]string{"error": "try again"})
//	    },
//	})
//
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func RecoveryWithConfig(config RecoveryConfig) core.Middleware {
	if config.StackSize <= 0 {
		config.StackSize = DefaultRecoveryConfig().StackSize
	}

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) (err error) {
			sw := wrapWriter(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				stack := debug.Stack()
				if len(stack) > config.StackSize {
					stack = stack[:config.StackSize]
				}
				if !config.DisableStackLog {
					logPanic(config.LogOutput, r, p, stack)
				}

				if config.Handler != nil {
					err = config.Handler(sw, r, p)
					return
				}
				if sw.written() {
					err = &PanicError{Value: p, Stack: stack}
					return
				}
				err = core.WriteJSON(sw, http.StatusInternalServerError, map[string]string{
					"error": http.StatusText(http.StatusInternalServerError),
				})
			}()

			return next(sw, r)
		}
	}
}

func logPanic(out io.Writer, r *core.ServerRequest, p any, stack []byte) {
	msg := fmt.Sprintf("PANIC: %v [%s %s]\n%s", p, r.Method(), r.URI().Path(), stack)
	if out == nil {
		log.Print(msg)
		return
	}
	if _, err := io.WriteString(out, msg+"\n"); err != nil {
		log.Printf("Failed to write panic log: %v", err)
	}
}

// RecoveryConfig defines configuration for recovery middleware.
type RecoveryConfig struct {
	// DisableStackLog turns off logging panics with their stack trace
	DisableStackLog bool

	// Stack traces are cut to StackSize bytes (default: 4KB)
	StackSize int

	// LogOutput receives panic logs (default: the standard logger)
	LogOutput io.Writer

	// Handler answers the request after a panic.
	// Default: 500 JSON response, or a *PanicError once the response started
	Handler func(w http.ResponseWriter, r *core.ServerRequest, recovered any) error
}

// DefaultRecoveryConfig returns default recovery configuration.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		StackSize: 4 << 10,
	}
}
