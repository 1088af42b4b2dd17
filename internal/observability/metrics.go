package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds the Prometheus metrics shared across the
// process. Uses a custom registry; no global state. The workspace keeps
// its own per-round metrics on the same registry.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// LLM metrics.
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMTokensUsed      *prometheus.CounterVec

	// Mind metrics.
	ExchangesTotal   *prometheus.CounterVec
	EmotionIntensity prometheus.Gauge
	BondStrength     prometheus.Gauge
	WorkingMemoryLen prometheus.Gauge

	// HTTP gateway metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// System metrics.
	ActiveRequests prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics
// registered on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		LLMRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total LLM API requests.",
		}, []string{"provider", "status"}),

		LLMRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ali",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM API request duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),

		LLMTokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "llm",
			Name:      "tokens_used_total",
			Help:      "Total LLM tokens consumed.",
		}, []string{"provider", "direction"}),

		ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "mind",
			Name:      "exchanges_total",
			Help:      "Total conversational exchanges processed.",
		}, []string{"privileged"}),

		EmotionIntensity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ali",
			Subsystem: "mind",
			Name:      "emotion_intensity",
			Help:      "Intensity of the current emotional state.",
		}),

		BondStrength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ali",
			Subsystem: "mind",
			Name:      "bond_strength",
			Help:      "Strength of the creator bond.",
		}),

		WorkingMemoryLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ali",
			Subsystem: "mind",
			Name:      "working_memory_items",
			Help:      "Items currently held in working memory.",
		}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ali",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ali",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),
	}

	reg.MustRegister(
		m.LLMRequestsTotal,
		m.LLMRequestDuration,
		m.LLMTokensUsed,
		m.ExchangesTotal,
		m.EmotionIntensity,
		m.BondStrength,
		m.WorkingMemoryLen,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
	)

	return m
}
