package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// LifecycleMetrics counts order transitions, OTP checks and mock order calls.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	otp         *prometheus.CounterVec
	mockCalls   *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle collectors on reg. A nil
// registerer yields a no-op recorder.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorops_order_transitions_total",
		Help: "Order transition attempts by event and outcome.",
	}, []string{"event", "outcome"})
	otp := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorops_order_otp_total",
		Help: "Order OTP operations by purpose and result.",
	}, []string{"purpose", "result"})
	mockCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorops_mock_order_calls_total",
		Help: "Mock order creation calls by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, otp, mockCalls)
	return &LifecycleMetrics{
		transitions: transitions,
		otp:         otp,
		mockCalls:   mockCalls,
	}
}

// Transition records one transition attempt.
func (m *LifecycleMetrics) Transition(event, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// OTP records one OTP request or verification result.
func (m *LifecycleMetrics) OTP(purpose, result string) {
	if m == nil || m.otp == nil {
		return
	}
	m.otp.WithLabelValues(normalizeLabel(purpose), normalizeLabel(result)).Inc()
}

// MockCall records one mock order creation call.
func (m *LifecycleMetrics) MockCall(result string) {
	if m == nil || m.mockCalls == nil {
		return
	}
	m.mockCalls.WithLabelValues(normalizeLabel(result)).Inc()
}
