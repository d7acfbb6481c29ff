package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Workflow label values.
const (
	OutcomeCreated  = "created"
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"

	SourceRequest = "request"
	SourceDirect  = "direct"

	ReturnEmployee = "employee"
	ReturnRemoval  = "affiliation_removal"
)

// WorkflowMetrics counts asset lifecycle transitions.
type WorkflowMetrics struct {
	requests    *prometheus.CounterVec
	assignments *prometheus.CounterVec
	returns     *prometheus.CounterVec
	payments    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_requests_total",
		Help: "Asset requests by outcome.",
	}, []string{"outcome"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_assignments_total",
		Help: "Assignments created, by source.",
	}, []string{"source"})
	returns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_returns_total",
		Help: "Assignments returned, by mode.",
	}, []string{"mode"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Confirmed package upgrades, by package.",
	}, []string{"package"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_duration_seconds",
		Help:    "Duration of transactional workflow operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(requests, assignments, returns, payments, duration)
	return &WorkflowMetrics{
		requests:    requests,
		assignments: assignments,
		returns:     returns,
		payments:    payments,
		duration:    duration,
	}
}

func (m *WorkflowMetrics) IncRequest(outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *WorkflowMetrics) IncAssignment(source string) {
	if m == nil || m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(normalizeLabel(source)).Inc()
}

// AddReturns counts n returned assignments. Bulk removal reports them at once.
func (m *WorkflowMetrics) AddReturns(mode string, n int) {
	if m == nil || m.returns == nil || n <= 0 {
		return
	}
	m.returns.WithLabelValues(normalizeLabel(mode)).Add(float64(n))
}

func (m *WorkflowMetrics) IncPaymentConfirmed(pkg string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(pkg)).Inc()
}

// ObserveDuration records how long operation took.
func (m *WorkflowMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// Since is shorthand for deferred timing: defer m.Since("approve", time.Now()).
func (m *WorkflowMetrics) Since(operation string, start time.Time) {
	m.ObserveDuration(operation, time.Since(start))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
