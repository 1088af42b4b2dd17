package workspace

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the global workspace.
// All metrics use the ali_workspace_ namespace.
type Metrics struct {
	RoundsTotal        prometheus.Counter
	EmptyRoundsTotal   prometheus.Counter
	RoundDuration      prometheus.Histogram
	CandidatesTotal    *prometheus.CounterVec
	WinnersTotal       *prometheus.CounterVec
	ProposerErrors     *prometheus.CounterVec
	ProposerTimeouts   prometheus.Counter
	SubscriberFailures *prometheus.CounterVec
}

// NewMetrics creates and registers workspace metrics on the given registry.
// Returns nil if reg is nil; all Metrics methods are nil-safe.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		RoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "rounds_total",
			Help:      "Total dispatch rounds started.",
		}),
		EmptyRoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "empty_rounds_total",
			Help:      "Rounds where no proposer produced a candidate.",
		}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "round_duration_seconds",
			Help:      "Wall time of completed rounds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 3, 5},
		}),
		CandidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "candidates_total",
			Help:      "Candidate thoughts submitted, by proposing module.",
		}, []string{"source"}),
		WinnersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "winners_total",
			Help:      "Winning thoughts, by proposing module.",
		}, []string{"source"}),
		ProposerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "proposer_errors_total",
			Help:      "Proposer failures, isolated per round.",
		}, []string{"module"}),
		ProposerTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "proposer_timeouts_total",
			Help:      "Rounds that abandoned at least one slow proposer.",
		}),
		SubscriberFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "workspace",
			Name:      "subscriber_failures_total",
			Help:      "Broadcast delivery failures, by subscribing module.",
		}, []string{"module"}),
	}

	reg.MustRegister(
		m.RoundsTotal,
		m.EmptyRoundsTotal,
		m.RoundDuration,
		m.CandidatesTotal,
		m.WinnersTotal,
		m.ProposerErrors,
		m.ProposerTimeouts,
		m.SubscriberFailures,
	)

	return m
}

func (m *Metrics) roundStarted() {
	if m != nil {
		m.RoundsTotal.Inc()
	}
}

func (m *Metrics) roundEmpty() {
	if m != nil {
		m.EmptyRoundsTotal.Inc()
	}
}

func (m *Metrics) roundCompleted(d time.Duration) {
	if m != nil {
		m.RoundDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) candidateSubmitted(source string) {
	if m != nil {
		m.CandidatesTotal.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) winnerSelected(source string) {
	if m != nil {
		m.WinnersTotal.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) proposerError(module string) {
	if m != nil {
		m.ProposerErrors.WithLabelValues(module).Inc()
	}
}

func (m *Metrics) proposerTimeout() {
	if m != nil {
		m.ProposerTimeouts.Inc()
	}
}

func (m *Metrics) subscriberFailure(module string) {
	if m != nil {
		m.SubscriberFailures.WithLabelValues(module).Inc()
	}
}
