package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the outbox publisher.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	recentDLQ    *prometheus.GaugeVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to the broker.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Retryable outbox publish failures.",
	}, []string{"event_type"})
	dead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dead_lettered_total",
		Help: "Outbox events moved to the dead letter table.",
	}, []string{"reason"})
	recent := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbox_dlq_recent_entries",
		Help: "Dead letters written inside the watch window, by reason.",
	}, []string{"reason"})
	reg.MustRegister(published, failed, dead, recent)
	return &OutboxMetrics{published: published, failed: failed, deadLettered: dead, recentDLQ: recent}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) SetRecentDeadLetters(reason string, n int64) {
	if m == nil || m.recentDLQ == nil {
		return
	}
	m.recentDLQ.WithLabelValues(normalizeLabel(reason)).Set(float64(n))
}

// Published exposes the per event type counter for assertions.
func (m *OutboxMetrics) Published(eventType string) prometheus.Counter {
	if m == nil || m.published == nil {
		return nil
	}
	return m.published.WithLabelValues(normalizeLabel(eventType))
}
