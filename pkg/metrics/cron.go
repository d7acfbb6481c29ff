package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks maintenance job runs, labeled by job name.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	success     *prometheus.CounterVec
	failure     *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	m := &CronJobMetrics{now: time.Now}
	if reg == nil {
		return m
	}
	labels := []string{"job"}
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Wall time of one maintenance job run.",
		Buckets: []float64{0.05, 0.25, 1, 5, 30, 120, 600},
	}, labels)
	m.success = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "job_success", Help: "Maintenance job runs that returned nil."}, labels)
	m.failure = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "job_failure", Help: "Maintenance job runs that returned an error."}, labels)
	m.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run per job.",
	}, labels)
	reg.MustRegister(m.duration, m.success, m.failure, m.lastSuccess)
	return m
}

// ObserveJob records one run. A nil err counts as success.
func (m *CronJobMetrics) ObserveJob(job string, took time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.failure.WithLabelValues(job).Inc()
		return
	}
	m.success.WithLabelValues(job).Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(m.now().Unix()))
}
