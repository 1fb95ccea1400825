// Package metrics exposes Prometheus collectors for the retrieval engine.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soundprediction/multirag/pkg/types"
)

// Call outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Route outcomes.
const (
	RouteClassified = "classified"
	RouteCached     = "cached"
	RouteFallback   = "fallback"
)

// Metrics owns a registry and the engine's collectors.
type Metrics struct {
	registry *prometheus.Registry

	backendLatency *prometheus.HistogramVec
	backendResults *prometheus.HistogramVec
	backendCalls   *prometheus.CounterVec
	routeDecisions *prometheus.CounterVec
	synthesisPaths *prometheus.CounterVec
	rerankDegraded *prometheus.CounterVec
	answerLatency  prometheus.Histogram
	tokens         *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "multirag_backend_latency_ms",
			Help:    "Latency of backend retrieval calls in milliseconds",
			Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 300, 500, 800, 1200, 2500, 5000, 10000},
		}, []string{"backend"}),
		backendResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "multirag_backend_results",
			Help:    "Number of evidence items returned by a backend call",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"backend"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multirag_backend_calls_total",
			Help: "Backend retrieval calls by outcome (ok/error/timeout)",
		}, []string{"backend", "outcome"}),
		routeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multirag_route_decisions_total",
			Help: "Router decisions (classified/cached/fallback)",
		}, []string{"outcome"}),
		synthesisPaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multirag_synthesis_path_total",
			Help: "Answers by terminal synthesis path",
		}, []string{"path"}),
		rerankDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multirag_rerank_degraded_total",
			Help: "Reranking calls that fell back to native order",
		}, []string{"stage"}),
		answerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "multirag_answer_latency_seconds",
			Help:    "End to end latency of Answer",
			Buckets: prometheus.DefBuckets,
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multirag_llm_tokens_total",
			Help: "Language model tokens by model, usage and kind (prompt/completion)",
		}, []string{"model", "usage", "kind"}),
	}

	m.registry.MustRegister(
		m.backendLatency, m.backendResults, m.backendCalls, m.routeDecisions,
		m.synthesisPaths, m.rerankDegraded, m.answerLatency, m.tokens,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBackendCall records latency, result size and outcome of one call.
func (m *Metrics) ObserveBackendCall(backend types.BackendKind, start time.Time, results int, outcome string) {
	if m == nil {
		return
	}
	b := string(backend)
	m.backendLatency.WithLabelValues(b).Observe(float64(time.Since(start).Milliseconds()))
	m.backendResults.WithLabelValues(b).Observe(float64(results))
	m.backendCalls.WithLabelValues(b, outcome).Inc()
}

// IncRoute counts a router decision.
func (m *Metrics) IncRoute(outcome string) {
	if m == nil {
		return
	}
	m.routeDecisions.WithLabelValues(outcome).Inc()
}

// IncSynthesisPath counts an answer by terminal path.
func (m *Metrics) IncSynthesisPath(path types.SynthesisPath) {
	if m == nil {
		return
	}
	m.synthesisPaths.WithLabelValues(string(path)).Inc()
}

// IncRerankDegraded counts a degraded reranking.
func (m *Metrics) IncRerankDegraded(stage string) {
	if m == nil {
		return
	}
	m.rerankDegraded.WithLabelValues(stage).Inc()
}

// ObserveAnswer records the end to end latency of a request.
func (m *Metrics) ObserveAnswer(d time.Duration) {
	if m == nil {
		return
	}
	m.answerLatency.Observe(d.Seconds())
}

// RecordTokens counts token usage. It satisfies nlp.TokenRecorder.
func (m *Metrics) RecordTokens(ctx context.Context, model string, usage *types.TokenUsage) error {
	if m == nil || usage == nil {
		return nil
	}
	u := types.UsageFromContext(ctx)
	if u == "" {
		u = "unknown"
	}
	m.tokens.WithLabelValues(model, u, "prompt").Add(float64(usage.PromptTokens))
	m.tokens.WithLabelValues(model, u, "completion").Add(float64(usage.CompletionTokens))
	return nil
}
