package igvf

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the client's request
// lifecycle, the bulk-search fan-out, request coalescing, and the
// cache-aside layer. It is safe for concurrent use; a nil collector is a
// no-op so instrumented code never has to branch.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	bulkGroups prometheus.Histogram

	deduplicationHits *prometheus.CounterVec

	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheStoreErrors prometheus.Counter

	errorsTotal *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, letting tests and embedders isolate their metric namespace.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "igvf_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igvf_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "igvf_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		bulkGroups: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "igvf_bulk_search_groups",
				Help:    "Number of path groups issued per bulk-search fetch",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		deduplicationHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "igvf_deduplication_hits_total",
				Help: "Total number of coalesced in-flight request hits",
			},
			[]string{"method", "endpoint"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "igvf_cache_hits_total",
				Help: "Total number of cache-aside hits",
			},
			[]string{"key"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "igvf_cache_misses_total",
				Help: "Total number of cache-aside misses",
			},
			[]string{"key"},
		),
		cacheStoreErrors: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "igvf_cache_store_errors_total",
				Help: "Total number of cache store failures degraded to misses",
			},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "igvf_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "method", "endpoint"},
		),
		registry: registry,
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordBulkGroups observes the fan-out of one bulk-search fetch.
func (mc *MetricsCollector) RecordBulkGroups(groups int) {
	if mc == nil {
		return
	}

	mc.bulkGroups.Observe(float64(groups))
}

// RecordDeduplicationHit increments the coalescing hit counter.
func (mc *MetricsCollector) RecordDeduplicationHit(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.deduplicationHits.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheHit increments the cache hit counter for an outer key.
func (mc *MetricsCollector) RecordCacheHit(key string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(key).Inc()
}

// RecordCacheMiss increments the cache miss counter for an outer key.
func (mc *MetricsCollector) RecordCacheMiss(key string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(key).Inc()
}

// RecordCacheStoreError counts a store failure that degraded to a miss.
func (mc *MetricsCollector) RecordCacheStoreError() {
	if mc == nil {
		return
	}

	mc.cacheStoreErrors.Inc()
}

// RecordError increments the error counter by class.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// GetRegistry exposes the underlying prometheus registry when the collector
// was built on one; nil otherwise.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if reg, ok := mc.registry.(*prometheus.Registry); ok {
		return reg
	}
	return nil
}
