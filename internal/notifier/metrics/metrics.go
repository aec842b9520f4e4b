package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"travelcred/internal/notifier"
)

// Metrics tracks event publication, drops and sink failures.
type Metrics struct {
	Published    *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	SinkFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_events_published_total",
			Help: "Events accepted onto the publish queue",
		}, []string{"event_type"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_events_dropped_total",
			Help: "Events not delivered to a subscriber or sink, by reason",
		}, []string{"reason"}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcred_event_sink_failures_total",
			Help: "Failed sink deliveries",
		}, []string{"sink"}),
	}
}

func (m *Metrics) IncPublished(t notifier.Type) {
	m.Published.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) IncDropped(reason string) {
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncSinkFailure(sink string) {
	m.SinkFailures.WithLabelValues(sink).Inc()
}
