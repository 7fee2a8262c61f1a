// Package metrics defines the Prometheus metrics exported by the auth
// service. All metrics are registered with the default registry via
// promauto and exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OAuth Flow Metrics
var (
	// LoginInitiationsTotal tracks login attempts by result
	LoginInitiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_initiations_total",
			Help: "Total login initiations by result (started/rate_limited/provider_error)",
		},
		[]string{"result"},
	)

	// CallbacksTotal tracks OAuth callback processing by result
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oauth_callbacks_total",
			Help: "Total OAuth callbacks processed by result (success/missing_verifier/missing_session/exchange_error/identify_error)",
		},
		[]string{"result"},
	)

	// ProviderRequestDuration tracks wiki provider call latency by operation
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oauth_provider_request_duration_seconds",
			Help:    "OAuth provider request duration in seconds by operation (initiate/token/identify)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// LogoutsTotal tracks logout requests
	LogoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logouts_total",
			Help: "Total logout requests",
		},
	)
)

// Session Token Metrics
var (
	// JWTTokensIssued tracks session tokens minted after a successful callback
	JWTTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jwt_tokens_issued_total",
			Help: "Total session JWTs issued",
		},
	)

	// TokenCacheHits tracks token row ID cache hits
	TokenCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_cache_hits_total",
			Help: "Total token row ID lookups served from the in-process cache",
		},
	)

	// TokenCacheMisses tracks token row ID lookups that fell through to a table scan
	TokenCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_cache_misses_total",
			Help: "Total token row ID lookups that required a table scan",
		},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Request Metrics
// Note: http_errors_total{type} is provided by internal/errors package
