package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the visa registry.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	PassportGate      *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the visa metrics on reg. A nil *Metrics records nothing.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_visa_transitions_total",
			Help: "Committed visa transitions by operation",
		}, []string{"operation"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_visa_rejections_total",
			Help: "Visa operations refused by the registry, by operation and error code",
		}, []string{"operation", "code"}),
		PassportGate: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_visa_passport_gate_total",
			Help: "Visa applications checked against the referenced passport, by outcome",
		}, []string{"outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "travelcred_visa_operation_duration_seconds",
			Help:    "Duration of visa registry mutations including lock wait",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncTransition(op string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(op).Inc()
}

func (m *Metrics) IncRejection(op, code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(op, code).Inc()
}

// IncPassportGate counts the outcome of the active-passport check:
// "active", "inactive" or "missing".
func (m *Metrics) IncPassportGate(outcome string) {
	if m == nil {
		return
	}
	m.PassportGate.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOperation(op string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
