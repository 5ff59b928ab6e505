// Package metrics provides Prometheus metrics collection for documind.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/documind/ports"
)

const namespace = "documind"

// Collector holds all Prometheus metrics for documind.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Quota metrics
	QuotaDecisions   *prometheus.CounterVec
	QuotaStoreErrors *prometheus.CounterVec
	UsageEvents      *prometheus.CounterVec

	// Delegated work
	PDFTasks   *prometheus.CounterVec
	AIRequests *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		QuotaDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_decisions_total",
				Help:      "Quota checks by bucket and outcome",
			},
			[]string{"bucket", "outcome"},
		),
		QuotaStoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_store_errors_total",
				Help:      "Usage log failures by operation (count, append)",
			},
			[]string{"op"},
		),
		UsageEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_events_total",
				Help:      "Usage events recorded by action",
			},
			[]string{"action"},
		),
		PDFTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pdf_tasks_total",
				Help:      "PDF tool runs by tool and status",
			},
			[]string{"tool", "status"},
		),
		AIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "Language model calls by model and status",
			},
			[]string{"model", "status"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// QuotaDecision counts one gate decision.
func (c *Collector) QuotaDecision(bucket, outcome string) {
	c.QuotaDecisions.WithLabelValues(bucket, outcome).Inc()
}

// QuotaStoreError counts one usage log failure.
func (c *Collector) QuotaStoreError(op string) {
	c.QuotaStoreErrors.WithLabelValues(op).Inc()
}

// UsageRecorded counts one appended usage event.
func (c *Collector) UsageRecorded(action string) {
	c.UsageEvents.WithLabelValues(action).Inc()
}

// PDFTask counts one PDF tool run.
func (c *Collector) PDFTask(tool, status string) {
	c.PDFTasks.WithLabelValues(tool, status).Inc()
}

// AIRequest counts one language model call.
func (c *Collector) AIRequest(model, status string) {
	c.AIRequests.WithLabelValues(model, status).Inc()
}

// NormalizePath reduces cardinality by collapsing unknown paths.
func NormalizePath(path string) string {
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}

var _ ports.Metrics = (*Collector)(nil)
