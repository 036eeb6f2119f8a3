package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsActive  prometheus.Gauge

	// Access control metrics
	accessChecksTotal *prometheus.CounterVec
	adminOverrides    prometheus.Counter

	// Topic metrics
	cascadeSize      prometheus.Histogram
	topicMutations   *prometheus.CounterVec
	cycleRejections  prometheus.Counter

	// Document metrics
	uploadsTotal     *prometheus.CounterVec
	uploadRejections *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Database metrics
	dbConnectionsActive prometheus.Gauge
	dbQueryDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_http_requests_total",
				Help: "Total HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docshelf_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpRequestsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docshelf_http_requests_active",
				Help: "In-flight HTTP requests.",
			},
		),
		accessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_access_checks_total",
				Help: "Library access checks by requested right and outcome.",
			},
			[]string{"right", "outcome"},
		),
		adminOverrides: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docshelf_admin_overrides_total",
				Help: "Access checks granted through the admin override.",
			},
		),
		cascadeSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docshelf_topic_cascade_size",
				Help:    "Number of descendant topics repathed per move or rename.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		topicMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_topic_mutations_total",
				Help: "Topic mutations by operation.",
			},
			[]string{"operation"},
		),
		cycleRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docshelf_topic_cycle_rejections_total",
				Help: "Topic moves rejected because they would create a cycle.",
			},
		),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_document_uploads_total",
				Help: "Document uploads by outcome.",
			},
			[]string{"outcome"},
		),
		uploadRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_upload_rejections_total",
				Help: "Upload policy rejections by reason.",
			},
			[]string{"reason"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_cache_hits_total",
				Help: "Cache hits by entry kind.",
			},
			[]string{"kind"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docshelf_cache_misses_total",
				Help: "Cache misses by entry kind.",
			},
			[]string{"kind"},
		),
		dbConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docshelf_db_connections_active",
				Help: "Open database connections.",
			},
		),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docshelf_db_query_duration_seconds",
				Help:    "Database query latency by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsActive,
		m.accessChecksTotal,
		m.adminOverrides,
		m.cascadeSize,
		m.topicMutations,
		m.cycleRejections,
		m.uploadsTotal,
		m.uploadRejections,
		m.cacheHits,
		m.cacheMisses,
		m.dbConnectionsActive,
		m.dbQueryDuration,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveRequests increments the in-flight request gauge.
func (m *Metrics) IncActiveRequests() { m.httpRequestsActive.Inc() }

// DecActiveRequests decrements the in-flight request gauge.
func (m *Metrics) DecActiveRequests() { m.httpRequestsActive.Dec() }

// ObserveAccessCheck records an access check result.
func (m *Metrics) ObserveAccessCheck(right string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.accessChecksTotal.WithLabelValues(right, outcome).Inc()
}

// ObserveAdminOverride records an access check granted via admin status.
func (m *Metrics) ObserveAdminOverride() { m.adminOverrides.Inc() }

// ObserveCascade records the descendant count of a path cascade.
func (m *Metrics) ObserveCascade(descendants int) {
	m.cascadeSize.Observe(float64(descendants))
}

// ObserveTopicMutation records a topic create, move, rename or delete.
func (m *Metrics) ObserveTopicMutation(operation string) {
	m.topicMutations.WithLabelValues(operation).Inc()
}

// ObserveCycleRejection records a rejected cyclic move.
func (m *Metrics) ObserveCycleRejection() { m.cycleRejections.Inc() }

// ObserveUpload records an upload attempt outcome.
func (m *Metrics) ObserveUpload(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUploadRejection records an upload policy rejection by reason.
func (m *Metrics) ObserveUploadRejection(reason string) {
	m.uploadRejections.WithLabelValues(reason).Inc()
}

// ObserveCacheHit records a cache hit for a given entry kind.
func (m *Metrics) ObserveCacheHit(kind string) { m.cacheHits.WithLabelValues(kind).Inc() }

// ObserveCacheMiss records a cache miss for a given entry kind.
func (m *Metrics) ObserveCacheMiss(kind string) { m.cacheMisses.WithLabelValues(kind).Inc() }

// SetDBConnections sets the open database connection gauge.
func (m *Metrics) SetDBConnections(n int) {
	m.dbConnectionsActive.Set(float64(n))
}

// ObserveDBQuery records a database query duration.
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
