package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sicko7947/automation"
)

// Metrics collects run and action telemetry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runsStarted     prometheus.Counter
	runsCompleted   prometheus.Counter
	runsFailed      prometheus.Counter
	runDuration     *prometheus.HistogramVec
	actionsDispatch *prometheus.CounterVec
}

// NewMetrics creates a collector registered on its own registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "automation"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.runsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_started_total",
		Help:      "Total number of workflow executions started",
	})

	m.runsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_completed_total",
		Help:      "Total number of workflow executions that completed",
	})

	m.runsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_failed_total",
		Help:      "Total number of workflow executions that failed",
	})

	m.runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time from execution start to terminal state, delays included",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~43m
		},
		[]string{"status"},
	)

	m.actionsDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "Total number of actions dispatched by kind and result",
		},
		[]string{"action_type", "result"},
	)

	m.registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runsFailed,
		m.runDuration,
		m.actionsDispatch,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
}

func (m *Metrics) runFinished(status automation.ExecutionStatus, duration time.Duration) {
	if m == nil {
		return
	}
	switch status {
	case automation.ExecutionStatusCompleted:
		m.runsCompleted.Inc()
	case automation.ExecutionStatusFailed:
		m.runsFailed.Inc()
	}
	m.runDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *Metrics) actionDispatched(kind automation.ActionKind, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.actionsDispatch.WithLabelValues(string(kind), result).Inc()
}
