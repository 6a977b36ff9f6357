// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	gatherer            prometheus.Gatherer
	operationsResolved  *prometheus.CounterVec
	resolveDuration     prometheus.Histogram
	cacheLookups        *prometheus.CounterVec
	pointsTransformed   prometheus.Counter
	definitionsLoaded   prometheus.Gauge
	definitionReloads   *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector registered with reg.
// A nil reg selects the default registry.
func NewCollector(namespace string, reg *prometheus.Registry) *Collector {
	if namespace == "" {
		namespace = "refsys"
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Collector{
		gatherer: gatherer,

		operationsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_resolved_total",
				Help:      "Total number of coordinate operation lookups",
			},
			[]string{"outcome"},
		),

		resolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Coordinate operation lookup duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
		),

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_cache_lookups_total",
				Help:      "Total number of operation cache lookups",
			},
			[]string{"result"},
		),

		pointsTransformed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_transformed_total",
				Help:      "Total number of transformed points",
			},
		),

		definitionsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "definitions_loaded",
				Help:      "Number of registered CRS codes",
			},
		),

		definitionReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reloads_total",
				Help:      "Total number of CRS definition reloads",
			},
			[]string{"source", "status"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncOperationsResolved counts an operation lookup by outcome.
func (c *Collector) IncOperationsResolved(outcome string) {
	c.operationsResolved.WithLabelValues(outcome).Inc()
}

// ObserveResolveDuration records operation lookup duration.
func (c *Collector) ObserveResolveDuration(duration time.Duration) {
	c.resolveDuration.Observe(duration.Seconds())
}

// RecordCacheLookup counts an operation cache hit or miss.
func (c *Collector) RecordCacheLookup(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// AddPointsTransformed counts transformed points.
func (c *Collector) AddPointsTransformed(count int) {
	if count > 0 {
		c.pointsTransformed.Add(float64(count))
	}
}

// SetDefinitionsLoaded sets the number of registered CRS codes.
func (c *Collector) SetDefinitionsLoaded(count int) {
	c.definitionsLoaded.Set(float64(count))
}

// IncDefinitionReloads counts a definition reload.
func (c *Collector) IncDefinitionReloads(source string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.definitionReloads.WithLabelValues(source, status).Inc()
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// normalizePath returns the route template ("/api/v1/crs/{code}") so that CRS codes
// do not become label values. Unrouted paths are truncated.
func normalizePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	path := r.URL.Path
	if len(path) > 20 {
		return path[:20] + "..."
	}
	return path
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
