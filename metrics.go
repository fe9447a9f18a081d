package roadside

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts activity events by type and status change.
type MetricsSink struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

var _ ActivitySink = (*MetricsSink)(nil)

// NewMetricsSink registers its collectors on reg. A nil reg uses a private
// registry, which is handy in tests.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadside",
			Name:      "activity_events_total",
			Help:      "Activity events recorded, by type.",
		}, []string{"event"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadside",
			Name:      "session_transitions_total",
			Help:      "Session status transitions, by source and target status.",
		}, []string{"from", "to"}),
	}

	for _, c := range []prometheus.Collector{s.events, s.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Record implements ActivitySink.
func (s *MetricsSink) Record(_ context.Context, event ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()
	if event.ToStatus != "" {
		s.transitions.WithLabelValues(event.FromStatus, event.ToStatus).Inc()
	}
	return nil
}

// EventCounter exposes the per-event counter vector.
func (s *MetricsSink) EventCounter() *prometheus.CounterVec {
	return s.events
}

// TransitionCounter exposes the per-transition counter vector.
func (s *MetricsSink) TransitionCounter() *prometheus.CounterVec {
	return s.transitions
}
