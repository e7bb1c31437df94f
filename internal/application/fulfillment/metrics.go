package fulfillment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the saga instrumentation. Vectors are registered by the
// caller (composition root) and injected; a nil Metrics disables recording.
type Metrics struct {
	Runs         *prometheus.CounterVec   // fulfillment_runs_total{outcome}
	StepDuration *prometheus.HistogramVec // fulfillment_step_duration_seconds{step}
}

func (m *Metrics) countRun(outcome string) {
	if m == nil || m.Runs == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeStep(name string, d time.Duration) {
	if m == nil || m.StepDuration == nil {
		return
	}
	m.StepDuration.WithLabelValues(name).Observe(d.Seconds())
}
