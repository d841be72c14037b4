// Package metrics exposes prometheus instrumentation for verification and
// registry traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry client and verifier.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Verification outcomes by reason code
	Verifications *prometheus.CounterVec

	// Transaction outcomes by contract method
	Transactions *prometheus.CounterVec

	// Read call latencies by contract method
	RegistryCalls *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg. A nil reg registers
// with the prometheus default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "diplomachain_verifications_total",
			Help: "Total verifications by reason code",
		}, []string{"reason"}),

		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "diplomachain_transactions_total",
			Help: "Total submitted transactions by method and final outcome",
		}, []string{"method", "outcome"}), // outcome: "confirmed", "failed"

		RegistryCalls: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diplomachain_registry_call_duration_seconds",
			Help:    "Duration of registry view calls by method",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
	}
}

// IncrementVerification records a verdict.
func (m *Metrics) IncrementVerification(reason string) {
	if m != nil {
		m.Verifications.WithLabelValues(reason).Inc()
	}
}

// IncrementTransaction records a transaction reaching a terminal state.
func (m *Metrics) IncrementTransaction(method, outcome string) {
	if m != nil {
		m.Transactions.WithLabelValues(method, outcome).Inc()
	}
}

// ObserveRegistryCall records the duration of a view call.
func (m *Metrics) ObserveRegistryCall(method string, d time.Duration) {
	if m != nil {
		m.RegistryCalls.WithLabelValues(method).Observe(d.Seconds())
	}
}
