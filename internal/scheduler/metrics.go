package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the maintenance scheduler.
type Metrics struct {
	JobsRun     *prometheus.CounterVec
	JobsFailed  *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers scheduler metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		JobsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "scheduler",
			Name:      "jobs_run_total",
			Help:      "Total maintenance jobs completed successfully.",
		}, []string{"job"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ali",
			Subsystem: "scheduler",
			Name:      "jobs_failed_total",
			Help:      "Total maintenance jobs that returned an error.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ali",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of each maintenance job run.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"job"}),
	}

	reg.MustRegister(m.JobsRun, m.JobsFailed, m.JobDuration)
	return m
}
