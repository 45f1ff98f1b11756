package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/serverrequest/core"
)

// Metrics returns a middleware that records request counts and latencies
// in the default Prometheus registry.
//
// Collected metrics:
//   - http_requests_total{method,status}
//   - http_request_duration_seconds{method}
//
// Example:
//
//	h := core.Chain(handler, middleware.Metrics())
//	mux.Handle("/metrics", promhttp.Handler())
func Metrics() core.Middleware {
	return MetricsWithConfig(DefaultMetricsConfig())
}

// MetricsWithConfig returns a metrics middleware with custom configuration.
//
// Registering the same metrics twice on one registry reuses the existing
// collectors, so several chains can share a registry.
func MetricsWithConfig(config MetricsConfig) core.Middleware {
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	requests := register(config.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "http_requests_total",
		Help:      "Number of HTTP requests by method and status.",
	}, []string{"method", "status"}))

	latency := register(config.Registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   config.Buckets,
	}, []string{"method"}))

	return func(next core.Handler) core.Handler {
		return func(w http.ResponseWriter, r *core.ServerRequest) error {
			start := time.Now()
			sw := wrapWriter(w)
			err := next(sw, r)

			status := sw.status
			if status == 0 {
				if err != nil {
					status = core.StatusFor(err)
				} else {
					status = http.StatusOK
				}
			}

			method := methodLabel(r.Method())
			requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
			latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// MetricsConfig defines configuration for metrics middleware.
type MetricsConfig struct {
	// Registerer receives the collectors (default: prometheus.DefaultRegisterer)
	Registerer prometheus.Registerer

	// Namespace prefixes metric names, e.g. "api" gives api_http_requests_total
	Namespace string

	// Buckets for the latency histogram (default: prometheus.DefBuckets)
	Buckets []float64
}

// DefaultMetricsConfig returns default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Registerer: prometheus.DefaultRegisterer,
		Buckets:    prometheus.DefBuckets,
	}
}

// register returns the collector already registered under the same
// description, if any.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// methodLabel keeps label cardinality bounded for arbitrary methods.
func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
		http.MethodConnect, http.MethodTrace:
		return m
	default:
		return "OTHER"
	}
}
