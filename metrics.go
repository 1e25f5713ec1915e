package notibus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeMismatch = "type_mismatch"
)

// busMetrics holds the optional prometheus collectors. A nil receiver is a
// valid no-op, so dispatch never branches on whether metrics are enabled.
type busMetrics struct {
	posts     *prometheus.CounterVec
	delivered prometheus.Counter
	panics    prometheus.Counter
	observers prometheus.Gauge
}

func newBusMetrics(reg prometheus.Registerer) *busMetrics {
	factory := promauto.With(reg)
	return &busMetrics{
		posts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notibus",
			Name:      "posts_total",
			Help:      "Posts by delivery mode and outcome.",
		}, []string{"mode", "outcome"}),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notibus",
			Name:      "deliveries_total",
			Help:      "Observer invocations dispatched.",
		}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "notibus",
			Name:      "callback_panics_total",
			Help:      "Observer callbacks that panicked.",
		}),
		observers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "notibus",
			Name:      "observers",
			Help:      "Currently registered observers.",
		}),
	}
}

func (m *busMetrics) post(async bool, outcome string) {
	if m == nil {
		return
	}
	mode := "sync"
	if async {
		mode = "async"
	}
	m.posts.WithLabelValues(mode, outcome).Inc()
}

func (m *busMetrics) deliveredCount(n int) {
	if m == nil {
		return
	}
	m.delivered.Add(float64(n))
}

func (m *busMetrics) panicked() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

func (m *busMetrics) observerAdded() {
	if m == nil {
		return
	}
	m.observers.Inc()
}

func (m *busMetrics) observerRemoved() {
	if m == nil {
		return
	}
	m.observers.Dec()
}
