// Package metrics exposes Prometheus metrics for voice interactions.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-tasks/internal/domain"
)

const namespace = "voice_tasks"

type Metrics struct {
	registry *prometheus.Registry

	InteractionsTotal   *prometheus.CounterVec
	InteractionFailures *prometheus.CounterVec
	InteractionActive   prometheus.Gauge
	InteractionDuration prometheus.Histogram
	Transitions         *prometheus.CounterVec
	TriggersRejected    prometheus.Counter

	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// New registers all metrics on a fresh registry, so several instances can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		started:  make(map[string]time.Time),

		InteractionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Finished voice interactions by terminal state",
		}, []string{"state"}),
		InteractionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_failures_total",
			Help:      "Failed voice interactions by error kind",
		}, []string{"kind"}),
		InteractionActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interaction_active",
			Help:      "1 while a voice interaction is running",
		}),
		InteractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_duration_seconds",
			Help:      "Time from trigger to terminal state",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Pipeline state transitions by target state",
		}, []string{"state"}),
		TriggersRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_rejected_total",
			Help:      "Triggers rejected because an interaction was in progress",
		}),

		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Outcome events published",
		}, []string{"topic"}),
		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_publish_errors_total",
			Help:      "Outcome events that could not be published",
		}, []string{"topic"}),
		PublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "events_publish_latency_seconds",
			Help:      "Outcome event publish latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OnStateChange follows the controller's state machine.
func (m *Metrics) OnStateChange(c domain.StateChange) {
	m.Transitions.WithLabelValues(c.To.String()).Inc()

	switch c.To {
	case domain.StateAwaitingSpeech:
		m.InteractionActive.Set(1)
		m.mu.Lock()
		m.started[c.InteractionID] = c.At
		m.mu.Unlock()

	case domain.StateDone, domain.StateFailed:
		m.InteractionsTotal.WithLabelValues(c.To.String()).Inc()
		if c.To == domain.StateFailed {
			m.InteractionFailures.WithLabelValues(c.Detail).Inc()
		}
		m.mu.Lock()
		start, ok := m.started[c.InteractionID]
		delete(m.started, c.InteractionID)
		m.mu.Unlock()
		if ok {
			m.InteractionDuration.Observe(c.At.Sub(start).Seconds())
		}

	case domain.StateIdle:
		m.InteractionActive.Set(0)
	}
}

func (m *Metrics) RecordPublish(topic string, err error, elapsed time.Duration) {
	m.PublishTotal.WithLabelValues(topic).Inc()
	if err != nil {
		m.PublishErrors.WithLabelValues(topic).Inc()
	}
	m.PublishLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordRejectedTrigger() {
	m.TriggersRejected.Inc()
}
