package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yourusername/serverrequest/core"
)

// RateLimit limits requests per client with a token bucket.
//
// Example:
//
//	middleware.RateLimit(middleware.RateLimitConfig{
//	    RequestsPerSecond: 100,
//	    Burst:             20,
//	})
func RateLimit(config RateLimitConfig) core.Middleware {
	return RateLimitWithConfig(config)
}

// RateLimitWithConfig is RateLimit with defaults applied to unset fields.
//
// Buckets are keyed by KeyFunc, for example by authenticated user:
//
//	middleware.RateLimitWithConfig(middleware.RateLimitConfig{
//	    RequestsPerSecond: 10,
//	    KeyFunc: func(r *core.ServerRequest) string {
//	        user, _ := r.Attribute("user_id").(string)
//	        return user
//	    },
//	})
func RateLimitWithConfig(config RateLimitConfig) core.Middleware {
	defaults := DefaultRateLimitConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.KeyFunc == nil {
		config.KeyFunc = defaults.KeyFunc
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaults.MaxAge
	}

	store := newBucketStore(config)

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			wait, ok := store.take(config.KeyFunc(r), time.Now())
			if ok {
				return next(w, r)
			}
			if config.ErrorHandler != nil {
				return config.ErrorHandler(w, r)
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			return core.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":   http.StatusText(http.StatusTooManyRequests),
				"retryIn": wait.Seconds(),
			})
		}
	}
}

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	// Sustained rate per key (default: 100)
	RequestsPerSecond int

	// Bucket size (default: 20)
	Burst int

	// KeyFunc picks the bucket for a request.
	// Default: client IP from the REMOTE_ADDR server param
	KeyFunc func(*core.ServerRequest) string

	// ErrorHandler answers limited requests.
	// Default: 429 JSON response with Retry-After
	ErrorHandler func(http.ResponseWriter, *core.ServerRequest) error

	// Idle buckets are swept at most once per CleanupInterval (default: 1m)
	// and dropped after MaxAge without traffic (default: 5m).
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

// DefaultRateLimitConfig returns default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             20,
		KeyFunc:           defaultKeyFunc,
		CleanupInterval:   time.Minute,
		MaxAge:            5 * time.Minute,
	}
}

// defaultKeyFunc returns the client IP without its port.
func defaultKeyFunc(r *core.ServerRequest) string {
	addr, _ := r.ServerParam("REMOTE_ADDR")
	s, _ := addr.(string)
	if s == "" {
		return "default"
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}

type bucket struct {
	tokens  float64
	updated time.Time
}

// bucketStore holds one token bucket per key. Idle buckets are swept
// while serving requests, so the store needs no goroutine of its own.
type bucketStore struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64
	burst      float64
	sweepEvery time.Duration
	maxAge     time.Duration
	lastSweep  time.Time
}

func newBucketStore(config RateLimitConfig) *bucketStore {
	return &bucketStore{
		buckets:    make(map[string]*bucket),
		rate:       float64(config.RequestsPerSecond),
		burst:      float64(config.Burst),
		sweepEvery: config.CleanupInterval,
		maxAge:     config.MaxAge,
	}
}

// take spends one token from key's bucket. When the bucket is empty it
// reports how long until the next token.
func (s *bucketStore) take(key string, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSweep.IsZero() {
		s.lastSweep = now
	} else if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweep(now)
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: s.burst, updated: now}
		s.buckets[key] = b
	}

	if elapsed := now.Sub(b.updated); elapsed > 0 {
		b.tokens = math.Min(s.burst, b.tokens+elapsed.Seconds()*s.rate)
	}
	b.updated = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	return time.Duration((1 - b.tokens) / s.rate * float64(time.Second)), false
}

// sweep drops buckets idle for longer than maxAge. Callers hold mu.
func (s *bucketStore) sweep(now time.Time) {
	for key, b := range s.buckets {
		if now.Sub(b.updated) > s.maxAge {
			delete(s.buckets, key)
		}
	}
	s.lastSweep = now
}

// size is the number of live buckets.
func (s *bucketStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
