package igvf

import (
	"net/http"
	"time"
)

// Option configures the Client during construction.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithConfig replaces the environment-derived configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithBaseURL pins the base URL, bypassing the runtime-based resolution.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithMaxURLLength caps the query strings the bulk-search chunker builds.
func WithMaxURLLength(n int) Option {
	return func(c *Client) {
		c.maxURLLength = n
	}
}

// WithRuntime overrides runtime detection. Mostly useful in tests.
func WithRuntime(rt Runtime) Option {
	return func(c *Client) {
		c.rt = rt
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables console logging to stderr.
func WithSimpleLogger() Option {
	return func(c *Client) {
		c.logger = NewSimpleLogger()
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a pre-built metrics collector, letting several
// clients share one or letting tests isolate a registry.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDeduplication coalesces concurrent identical GET requests into a
// single upstream round trip.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = newCoalescingTracker()
	}
}
