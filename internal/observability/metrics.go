package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
	"github.com/riskibarqy/score-tracker/internal/usecase"
)

const metricsNamespace = "score_tracker"

// Metrics records tracking pipeline counters on a dedicated registry.
type Metrics struct {
	registry     *prometheus.Registry
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	events       *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

var _ usecase.TrackingMetrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_total",
			Help:      "Tracking passes by source and result.",
		}, []string{"source", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one tracking pass including the provider fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "match_events_total",
			Help:      "Audit events recorded by type.",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejections_total",
			Help:      "Observations rejected by reconciliation.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_skipped_total",
			Help:      "Scheduler dispatches skipped before a pass started.",
		}, []string{"reason"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while a provider circuit breaker is open or half open.",
		}, []string{"name"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.polls,
		m.pollDuration,
		m.events,
		m.rejections,
		m.skipped,
		m.breakerState,
	)
	return m
}

func (m *Metrics) ObservePoll(source match.SourceType, result string, elapsed time.Duration) {
	m.polls.WithLabelValues(string(source), result).Inc()
	m.pollDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

func (m *Metrics) IncEvent(eventType match.EventType) {
	m.events.WithLabelValues(string(eventType)).Inc()
}

func (m *Metrics) IncRejection(kind usecase.RejectionKind) {
	m.rejections.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) IncSkipped(reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

// BreakerStateChanged matches resilience.StateChangeFunc.
func (m *Metrics) BreakerStateChanged(name string, _, to resilience.CircuitState) {
	value := 1.0
	if to == resilience.CircuitStateClosed {
		value = 0
	}
	m.breakerState.WithLabelValues(name).Set(value)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
