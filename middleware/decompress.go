package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/yourusername/serverrequest/core"
	"github.com/yourusername/serverrequest/stream"
)

// Decompress returns a middleware that decodes request bodies sent with a
// Content-Encoding (gzip, deflate, zstd, br).
//
// Downstream handlers get a request whose body is the decoded stream and
// which no longer carries Content-Encoding or Content-Length. Unknown
// codings are answered with 415 and bodies that fail to decode with 400.
//
// The decoded body is not limited; use DecompressWithConfig for bodies
// from untrusted clients.
func Decompress() core.Middleware {
	return DecompressWithConfig(DefaultDecompressConfig())
}

// DecompressWithConfig is Decompress with a cap on the decoded size.
//
//	middleware.DecompressWithConfig(middleware.DecompressConfig{
//	    MaxDecodedBytes: 1 << 20,
//	})
//
// Reading past MaxDecodedBytes fails with *http.MaxBytesError, which
// core.StatusFor answers with 413.
func DecompressWithConfig(config DecompressConfig) core.Middleware {
	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			coding := r.HeaderLine("Content-Encoding")
			if coding == "" {
				return next(w, r)
			}

			decoded, err := stream.Decode(r.Body(), coding)
			if err != nil {
				status := http.StatusBadRequest
				if errors.Is(err, stream.ErrUnsupportedEncoding) {
					status = http.StatusUnsupportedMediaType
				}
				return core.WriteJSON(w, status, map[string]string{"error": err.Error()})
			}
			defer func() {
				if cerr := decoded.Close(); cerr != nil {
					log.Printf("decompress: close body: %v", cerr)
				}
			}()

			plain, err := r.WithBody(stream.Limit(decoded, config.MaxDecodedBytes))
			if err != nil {
				return err
			}
			return next(w, plain.WithoutHeader("Content-Encoding").WithoutHeader("Content-Length"))
		}
	}
}

// DecompressConfig defines configuration for decompress middleware.
type DecompressConfig struct {
	// MaxDecodedBytes caps the decoded body. Zero means no limit.
	MaxDecodedBytes int64
}

// DefaultDecompressConfig returns default decompress configuration.
func DefaultDecompressConfig() DecompressConfig {
	return DecompressConfig{}
}
