package jobs

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When
// the registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_job_runs_total",
			Help: "Count of background job runs by task and outcome.",
		}, []string{"task", "success"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_job_failures_total",
			Help: "Count of background job failures by task.",
		}, []string{"task"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atelier_job_duration_seconds",
			Help:    "Background job duration by task.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration)
	return m
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track spawns a tracker for the given task type.
func (m *Metrics) Track(task string) *Tracker {
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// Done records the outcome of the run. Safe on a nil-metrics tracker.
func (t *Tracker) Done(err error) {
	if t == nil || t.metrics == nil {
		return
	}
	success := strconv.FormatBool(err == nil)
	t.metrics.runs.WithLabelValues(t.task, success).Inc()
	if err != nil {
		t.metrics.failures.WithLabelValues(t.task).Inc()
	}
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
}
