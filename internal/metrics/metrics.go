// Package metrics exposes Prometheus collectors for the relay and the HTTP
// middleware that feeds them.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcomes recorded by RecordStreamOutcome.
const (
	OutcomeDone             = "done"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeClientDisconnect = "client_disconnected"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_relay_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompt_relay_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// providerCallsTotal counts upstream calls by stage (expansion, completion, stream).
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_relay_provider_calls_total",
			Help: "Total number of calls made to the completion provider",
		},
		[]string{"stage", "result"},
	)

	streamFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prompt_relay_stream_frames_total",
			Help: "Total number of SSE data frames relayed to clients",
		},
	)

	streamOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_relay_stream_outcomes_total",
			Help: "Streaming relays by terminal state",
		},
		[]string{"outcome"},
	)

	registered atomic.Bool
	enabled    atomic.Bool
)

// SetEnabled toggles metrics collection.
func SetEnabled(on bool) {
	enabled.Store(on)
	if on {
		Register()
	}
}

// Enabled reports whether metrics are collected.
func Enabled() bool {
	return enabled.Load()
}

// Register registers all collectors with the default registry. It is safe to
// call more than once.
func Register() {
	if !registered.CompareAndSwap(false, true) {
		return
	}
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		providerCallsTotal,
		streamFramesTotal,
		streamOutcomesTotal,
	)
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Enabled() || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			path := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
			httpRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern avoids high label cardinality by using the matched route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProviderCall counts one upstream call and whether it failed.
func RecordProviderCall(stage string, err error) {
	if !Enabled() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerCallsTotal.WithLabelValues(stage, result).Inc()
}

// RecordStreamFrame counts one relayed SSE data frame.
func RecordStreamFrame() {
	if !Enabled() {
		return
	}
	streamFramesTotal.Inc()
}

// RecordStreamOutcome counts a finished streaming relay.
func RecordStreamOutcome(outcome string) {
	if !Enabled() {
		return
	}
	streamOutcomesTotal.WithLabelValues(outcome).Inc()
}
