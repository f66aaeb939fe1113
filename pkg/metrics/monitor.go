package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MonitorMetrics records metadata for reconciliation passes and the
// generation jobs they drive.
type MonitorMetrics struct {
	tickDuration  *prometheus.HistogramVec
	tickSuccess   *prometheus.CounterVec
	tickFailure   *prometheus.CounterVec
	jobsSubmitted *prometheus.CounterVec
	jobsFailed    *prometheus.CounterVec
	activeGauge   prometheus.Gauge
}

// NewMonitorMetrics registers the monitor metrics on the provided registerer.
// A nil registerer yields a no-op instance, which tests rely on.
func NewMonitorMetrics(reg prometheus.Registerer) *MonitorMetrics {
	if reg == nil {
		return &MonitorMetrics{}
	}
	tickDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monitor_tick_duration_seconds",
		Help:    "Duration of monitor reconciliation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	tickSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_tick_success",
		Help: "Successful monitor reconciliation passes.",
	}, []string{"job"})
	tickFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_tick_failure",
		Help: "Failed monitor reconciliation passes.",
	}, []string{"job"})
	jobsSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_jobs_submitted",
		Help: "Generation jobs submitted to external providers.",
	}, []string{"kind"})
	jobsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_jobs_failed",
		Help: "Generation jobs that reported failure.",
	}, []string{"kind"})
	activeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_active_projects",
		Help: "Projects observed in a non-terminal state during the last pass.",
	})
	reg.MustRegister(tickDuration, tickSuccess, tickFailure, jobsSubmitted, jobsFailed, activeGauge)
	return &MonitorMetrics{
		tickDuration:  tickDuration,
		tickSuccess:   tickSuccess,
		tickFailure:   tickFailure,
		jobsSubmitted: jobsSubmitted,
		jobsFailed:    jobsFailed,
		activeGauge:   activeGauge,
	}
}

// ObserveTickDuration records the duration for the named job.
func (m *MonitorMetrics) ObserveTickDuration(job string, duration time.Duration) {
	if m == nil || m.tickDuration == nil {
		return
	}
	m.tickDuration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncTickSuccess increments the success counter for the named job.
func (m *MonitorMetrics) IncTickSuccess(job string) {
	if m == nil || m.tickSuccess == nil {
		return
	}
	m.tickSuccess.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncTickFailure increments the failure counter for the named job.
func (m *MonitorMetrics) IncTickFailure(job string) {
	if m == nil || m.tickFailure == nil {
		return
	}
	m.tickFailure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncJobSubmitted counts a generation job handed to a provider.
func (m *MonitorMetrics) IncJobSubmitted(kind string) {
	if m == nil || m.jobsSubmitted == nil {
		return
	}
	m.jobsSubmitted.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncJobFailed counts a generation job that reported failure.
func (m *MonitorMetrics) IncJobFailed(kind string) {
	if m == nil || m.jobsFailed == nil {
		return
	}
	m.jobsFailed.WithLabelValues(normalizeLabel(kind)).Inc()
}

// SetActiveProjects records the number of in-flight projects.
func (m *MonitorMetrics) SetActiveProjects(n int) {
	if m == nil || m.activeGauge == nil {
		return
	}
	m.activeGauge.Set(float64(n))
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
