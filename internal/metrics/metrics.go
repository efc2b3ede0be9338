// Package metrics exposes Prometheus instrumentation for the dispatch core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DispatchMetrics holds all counters and histograms for work order and
// payment operations.
type DispatchMetrics struct {
	TransitionsTotal        *prometheus.CounterVec
	TransitionRejectedTotal *prometheus.CounterVec
	AssignmentsTotal        *prometheus.CounterVec
	VerificationsTotal      *prometheus.CounterVec
	CommissionBookedCents   prometheus.Counter
	PayoutsMarkedTotal      prometheus.Counter
	CandidateQueryDuration  prometheus.Histogram
}

// New registers and returns the dispatch metrics set.
func New() *DispatchMetrics {
	return &DispatchMetrics{
		TransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workorder_transitions_total",
				Help: "Work order status transitions by from/to state",
			},
			[]string{"from", "to"},
		),
		TransitionRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workorder_transitions_rejected_total",
				Help: "Transition attempts rejected by the state machine",
			},
			[]string{"operation", "code"},
		),
		AssignmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workorder_assignments_total",
				Help: "Assignments and reassignments by kind",
			},
			[]string{"kind"},
		),
		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_verifications_total",
				Help: "Payment verification decisions by action",
			},
			[]string{"action"},
		),
		CommissionBookedCents: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "commission_booked_cents_total",
				Help: "Total commission and bonus amounts booked, in cents",
			},
		),
		PayoutsMarkedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "commission_payouts_marked_total",
				Help: "Booked commissions marked as paid out",
			},
		),
		CandidateQueryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "assignment_candidate_query_duration_seconds",
				Help:    "Time to build the ranked candidate list for a work order",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
	}
}

// RecordTransition records a successful status change.
func (m *DispatchMetrics) RecordTransition(from, to string) {
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRejected records a transition attempt blocked by the state machine.
func (m *DispatchMetrics) RecordRejected(operation, code string) {
	m.TransitionRejectedTotal.WithLabelValues(operation, code).Inc()
}

// RecordAssignment records an assign or reassign.
func (m *DispatchMetrics) RecordAssignment(kind string) {
	m.AssignmentsTotal.WithLabelValues(kind).Inc()
}

// RecordVerification records an APPROVE or REJECT decision.
func (m *DispatchMetrics) RecordVerification(action string) {
	m.VerificationsTotal.WithLabelValues(action).Inc()
}

// RecordCommissionBooked adds a booked amount to the running total.
func (m *DispatchMetrics) RecordCommissionBooked(amountCents int64) {
	m.CommissionBookedCents.Add(float64(amountCents))
}

// RecordPayoutMarked records a payout flag being set.
func (m *DispatchMetrics) RecordPayoutMarked() {
	m.PayoutsMarkedTotal.Inc()
}

// ObserveCandidateQuery records how long candidate ranking took.
func (m *DispatchMetrics) ObserveCandidateQuery(seconds float64) {
	m.CandidateQueryDuration.Observe(seconds)
}
