// Package metrics exposes Prometheus metrics for proxied support tickets.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds metric naming options.
type Config struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Namespace: "zendesk_proxy"}
}

// Collector wraps the proxy's Prometheus metrics in its own registry.
type Collector struct {
	registry *prometheus.Registry

	TicketsTotal     *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	RateLimitedTotal *prometheus.CounterVec
}

// NewCollector creates a Collector with the default configuration.
func NewCollector() *Collector {
	return NewCollectorWithConfig(DefaultConfig())
}

// NewCollectorWithConfig creates a Collector with the given config.
func NewCollectorWithConfig(cfg Config) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		TicketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tickets_total",
			Help:      "Ticket proxy requests by endpoint and resulting status code",
		}, []string{"endpoint", "status"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "upstream_duration_seconds",
			Help:      "Duration of Zendesk API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		RateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"endpoint"}),
	}
	reg.MustRegister(c.TicketsTotal, c.UpstreamDuration, c.RateLimitedTotal)
	return c
}

// RecordTicket counts a ticket proxy request. Nil receivers are ignored so
// callers can run without metrics.
func (c *Collector) RecordTicket(endpoint string, status int) {
	if c == nil {
		return
	}
	c.TicketsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// ObserveUpstream records the duration of a Zendesk API call.
func (c *Collector) ObserveUpstream(operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.UpstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRateLimited counts a rejected request.
func (c *Collector) RecordRateLimited(endpoint string) {
	if c == nil {
		return
	}
	c.RateLimitedTotal.WithLabelValues(endpoint).Inc()
}

// Handler returns an HTTP handler serving the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
