// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for submissions.
const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalid       = "invalid"
	OutcomeAlreadySolved = "already_solved"
	OutcomeRejected      = "rejected"
	OutcomeError         = "error"
)

// Session lifecycle labels.
const (
	SessionOpened   = "opened"
	SessionConsumed = "consumed"
	SessionRejected = "rejected"
	SessionMissing  = "missing"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Submissions and their effect on the ledger
	submissions *prometheus.CounterVec
	solves      prometheus.Counter
	sessions    *prometheus.CounterVec

	// Scoreboard
	scoreboardDuration prometheus.Histogram
	cacheLookups       *prometheus.CounterVec
	teamsRanked        prometheus.Gauge

	// Storage
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ctfboard",
		subsystem:        "scoreboard",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Proof submissions by protocol variant and outcome"),
		[]string{"variant", "outcome"},
	)
	m.solves = auto.NewCounter(m.counterOpts("solves_total", "Solves recorded in the ledger"))
	m.sessions = auto.NewCounterVec(
		m.counterOpts("sessions_total", "Interactive session lifecycle events"),
		[]string{"stage"},
	)

	m.scoreboardDuration = auto.NewHistogram(
		m.histogramOpts("scoreboard_compute_milliseconds", "Time to rebuild the standings"),
	)
	m.cacheLookups = auto.NewCounterVec(
		m.counterOpts("cache_lookups_total", "Read cache lookups by cache and result"),
		[]string{"cache", "result"},
	)
	m.teamsRanked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "teams_ranked",
		Help:        "Teams with at least one solve in the last computed standings",
		ConstLabels: m.customLabels,
	})

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Storage operation latency"),
		[]string{"store", "op"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimited = auto.NewCounter(m.counterOpts("rate_limited_total", "Submissions rejected by the rate limiter"))

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
}

// RecordSubmission counts a proof submission.
func RecordSubmission(variant, outcome string) {
	globalManager.submissions.WithLabelValues(variant, outcome).Inc()
}

// RecordSolve counts a solve written to the ledger.
func RecordSolve() {
	globalManager.solves.Inc()
}

// RecordSession counts an interactive session event.
func RecordSession(stage string) {
	globalManager.sessions.WithLabelValues(stage).Inc()
}

// RecordScoreboardDuration records how long a standings rebuild took.
func RecordScoreboardDuration(ms float64) {
	globalManager.scoreboardDuration.Observe(ms)
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(cache, result).Inc()
}

// UpdateTeamsRanked sets the number of ranked teams.
func UpdateTeamsRanked(n int) {
	globalManager.teamsRanked.Set(float64(n))
}

// RecordStoreLatency records a storage operation latency in milliseconds.
func RecordStoreLatency(store, op string, ms float64) {
	globalManager.storeLatency.WithLabelValues(store, op).Observe(ms)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordErrorByComponent records errors by component and error type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
