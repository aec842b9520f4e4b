package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the passport registry.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the passport metrics on reg. A nil *Metrics is valid and
// records nothing.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_passport_transitions_total",
			Help: "Committed passport transitions by operation",
		}, []string{"operation"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_passport_rejections_total",
			Help: "Passport operations refused by the registry, by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "travelcred_passport_operation_duration_seconds",
			Help:    "Duration of passport registry mutations including lock wait",
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

// ObserveOperation records the duration of op. Call with time.Now() at the
// start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
