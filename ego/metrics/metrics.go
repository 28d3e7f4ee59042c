// Package metrics provides Prometheus metrics export for the event pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline outcome labels.
const (
	OutcomeCommitted = "committed"
	OutcomeEpisodic  = "episodic"
	OutcomeErrored   = "errored"
)

// LLM call result labels.
const (
	LLMResultOK          = "ok"
	LLMResultDegraded    = "degraded"
	LLMResultUnavailable = "unavailable"
)

// Recorder exports pipeline metrics in Prometheus format.
type Recorder struct {
	registry *prometheus.Registry

	eventsProcessed *prometheus.CounterVec
	eventDuration   prometheus.Histogram
	eventImportance prometheus.Histogram
	llmCalls        *prometheus.CounterVec
	graphNodes      prometheus.Gauge
	episodicEntries prometheus.Gauge
}

// NewRecorder creates a recorder on its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "egograph",
			Name:      "events_processed_total",
			Help:      "Events processed by the pipeline, by outcome.",
		}, []string{"outcome"}),
		eventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "egograph",
			Name:      "event_duration_seconds",
			Help:      "Wall-clock time to process one event.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		eventImportance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "egograph",
			Name:      "event_importance",
			Help:      "Final aggregated importance of processed events.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "egograph",
			Name:      "llm_calls_total",
			Help:      "LLM analysis calls, by result.",
		}, []string{"result"}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "egograph",
			Name:      "graph_memory_nodes",
			Help:      "Memory nodes currently in the ego graph.",
		}),
		episodicEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "egograph",
			Name:      "episodic_entries",
			Help:      "Entries currently in the episodic store.",
		}),
	}

	registry.MustRegister(
		r.eventsProcessed,
		r.eventDuration,
		r.eventImportance,
		r.llmCalls,
		r.graphNodes,
		r.episodicEntries,
	)
	return r
}

// RecordEvent records one pipeline outcome with its importance and duration.
func (r *Recorder) RecordEvent(outcome string, importance float64, duration time.Duration) {
	r.eventsProcessed.WithLabelValues(outcome).Inc()
	if outcome != OutcomeErrored {
		r.eventImportance.Observe(importance)
	}
	r.eventDuration.Observe(duration.Seconds())
}

// RecordLLMCall records the result of one analyzer call.
func (r *Recorder) RecordLLMCall(result string) {
	r.llmCalls.WithLabelValues(result).Inc()
}

// SetGraphNodes updates the graph size gauge.
func (r *Recorder) SetGraphNodes(n int) {
	r.graphNodes.Set(float64(n))
}

// SetEpisodicEntries updates the episodic size gauge.
func (r *Recorder) SetEpisodicEntries(n int) {
	r.episodicEntries.Set(float64(n))
}

// Handler serves the registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
