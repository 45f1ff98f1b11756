// Package jwt provides bearer token authentication middleware.
//
// Validated claims travel downstream as a request attribute:
//
//	h := core.Chain(handler, jwt.JWT(jwt.JWTConfig{Secret: secret}))
//
//	func handler(w http.ResponseWriter, r *core.ServerRequest) error {
//	    claims, _ := jwt.Claims(r, "user")
//	    ...
//	}
package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourusername/serverrequest/core"
)

// Common JWT errors. All of them match core.ErrUnauthorized.
var (
	ErrMissingToken      = fmt.Errorf("missing authorization token: %w", core.ErrUnauthorized)
	ErrInvalidAuthHeader = fmt.Errorf("invalid authorization header format: %w", core.ErrUnauthorized)
	ErrInvalidToken      = fmt.Errorf("invalid token: %w", core.ErrUnauthorized)
	ErrInvalidClaims     = fmt.Errorf("invalid token claims: %w", core.ErrUnauthorized)
	ErrTokenExpired      = fmt.Errorf("token has expired: %w", core.ErrUnauthorized)
	ErrInvalidSignature  = fmt.Errorf("invalid token signature: %w", core.ErrUnauthorized)
)

// JWTConfig defines JWT middleware configuration.
type JWTConfig struct {
	// Secret is the HMAC key tokens are verified with
	Secret []byte

	// Accepted signing algorithm (default: HS256)
	Algorithm string

	// Paths served without authentication, e.g. /login
	SkipPaths []string

	// Attribute holding the jwt.MapClaims (default: "user")
	AttributeKey string

	// ErrorHandler answers failed authentication.
	// Default: 401 JSON response with WWW-Authenticate
	ErrorHandler func(http.ResponseWriter, *core.ServerRequest, error) error

	// CacheTTL bounds how long a validated token skips verification
	// (default: 5m). Tokens never outlive their exp claim in the cache.
	CacheTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret []byte) JWTConfig {
	return JWTConfig{
		Secret:       secret,
		Algorithm:    "HS256",
		SkipPaths:    []string{},
		AttributeKey: "user",
		CacheTTL:     5 * time.Minute,
	}
}

// JWT returns bearer token authentication middleware.
func JWT(config JWTConfig) core.Middleware {
	return JWTWithConfig(config)
}

// JWTWithConfig is JWT with defaults applied to unset fields.
//
// Example:
//
//	jwt.JWTWithConfig(jwt.JWTConfig{
//	    Secret:    []byte("my-secret"),
//	    SkipPaths: []string{"/login", "/register"},
//	    ErrorHandler: func(w http.ResponseWriter, r *core.ServerRequest, err error) error {
//	        return core.WriteJSON(w, 401, map[string]string{"error": err.Error()})
//	    },
//	})
func JWTWithConfig(config JWTConfig) core.Middleware {
	defaults := DefaultJWTConfig(config.Secret)
	if config.Algorithm == "" {
		config.Algorithm = defaults.Algorithm
	}
	if config.AttributeKey == "" {
		config.AttributeKey = defaults.AttributeKey
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = unauthorized
	}

	a := &authenticator{
		parser: jwt.NewParser(jwt.WithValidMethods([]string{config.Algorithm})),
		secret: config.Secret,
		cache:  newTokenCache(config.CacheTTL),
	}
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			if _, ok := skip[r.URI().Path()]; ok {
				return next(w, r)
			}

			claims, err := a.authenticate(r.HeaderLine("Authorization"))
			if err != nil {
				return config.ErrorHandler(w, r, err)
			}
			return next(w, r.WithAttribute(config.AttributeKey, claims))
		}
	}
}

// Claims returns the claims JWT stored under key.
func Claims(r *core.ServerRequest, key string) (jwt.MapClaims, bool) {
	claims, ok := r.Attribute(key).(jwt.MapClaims)
	return claims, ok
}

type authenticator struct {
	parser *jwt.Parser
	secret []byte
	cache  *tokenCache
}

// authenticate verifies an Authorization header value.
func (a *authenticator) authenticate(header string) (jwt.MapClaims, error) {
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return nil, ErrInvalidAuthHeader
	}

	if claims, ok := a.cache.get(raw, time.Now()); ok {
		return claims, nil
	}

	token, err := a.parser.Parse(raw, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case err != nil, !token.Valid:
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	a.cache.set(raw, claims, time.Now())
	return claims, nil
}

func unauthorized(w http.ResponseWriter, r *core.ServerRequest, err error) error {
	w.Header().Set("WWW-Authenticate", `Bearer realm="restricted"`)
	return core.WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error": err.Error(),
	})
}

// tokenCache maps raw tokens to verified claims. Expired entries are
// pruned on insert.
type tokenCache struct {
	mu     sync.RWMutex
	tokens map[string]cacheEntry
	ttl    time.Duration
}

type cacheEntry struct {
	claims    jwt.MapClaims
	expiresAt time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{tokens: make(map[string]cacheEntry), ttl: ttl}
}

func (tc *tokenCache) get(token string, now time.Time) (jwt.MapClaims, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	entry, ok := tc.tokens[token]
	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	return entry.claims, true
}

// set caches claims until the TTL or the token's exp, whichever is first.
func (tc *tokenCache) set(token string, claims jwt.MapClaims, now time.Time) {
	expiresAt := now.Add(tc.ttl)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(expiresAt) {
		expiresAt = exp.Time
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	for k, e := range tc.tokens {
		if now.After(e.expiresAt) {
			delete(tc.tokens, k)
		}
	}
	tc.tokens[token] = cacheEntry{claims: claims, expiresAt: expiresAt}
}

func (tc *tokenCache) size() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.tokens)
}
