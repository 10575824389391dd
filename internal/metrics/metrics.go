package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters.
const (
	OutcomeOK           = "ok"
	OutcomeNotPriceable = "not_priceable"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// Collector holds the metrics of the pricing service
type Collector struct {
	registry *prometheus.Registry

	// Pricing metrics
	QuotesTotal *prometheus.CounterVec

	// Contract metrics
	ContractSubmissionsTotal *prometheus.CounterVec

	// Remote API metrics
	BackendRequestsTotal  *prometheus.CounterVec
	BackendRequestLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewCollector creates a collector registered on its own registry, along with the Go
// runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circle",
			Subsystem: "pricing",
			Name:      "quotes_total",
			Help:      "Number of evaluated quotes and previews",
		},
		[]string{"kind", "outcome"},
	)

	c.ContractSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circle",
			Subsystem: "contracts",
			Name:      "submissions_total",
			Help:      "Number of contract submissions by outcome",
		},
		[]string{"outcome"},
	)

	c.BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circle",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Requests sent to the remote API",
		},
		[]string{"operation", "outcome"},
	)

	c.BackendRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "circle",
			Subsystem: "backend",
			Name:      "request_latency_ms",
			Help:      "Remote API latency in milliseconds",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"operation"},
	)

	c.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "circle",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served",
		},
		[]string{"method", "status"},
	)

	c.registry.MustRegister(
		c.QuotesTotal,
		c.ContractSubmissionsTotal,
		c.BackendRequestsTotal,
		c.BackendRequestLatency,
		c.HTTPRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler returns the /metrics handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordQuote counts a quote ("quote") or preview ("preview") evaluation.
func (c *Collector) RecordQuote(kind, outcome string) {
	if c == nil {
		return
	}
	c.QuotesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordSubmission counts a contract submission attempt.
func (c *Collector) RecordSubmission(outcome string) {
	if c == nil {
		return
	}
	c.ContractSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordBackendRequest counts a remote API call and observes its latency.
func (c *Collector) RecordBackendRequest(operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.BackendRequestsTotal.WithLabelValues(operation, outcome).Inc()
	c.BackendRequestLatency.WithLabelValues(operation).Observe(float64(elapsed.Microseconds()) / 1000)
}

// RecordHTTPRequest counts a served HTTP request.
func (c *Collector) RecordHTTPRequest(method, status string) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, status).Inc()
}
