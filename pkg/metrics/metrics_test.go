package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/multirag/pkg/types"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveBackendCall(types.BackendWeb, time.Now(), 0, OutcomeTimeout)
	m.ObserveBackendCall(types.BackendVector, time.Now(), 3, OutcomeOK)
	m.ObserveBackendCall(types.BackendVector, time.Now(), 2, OutcomeOK)
	m.IncRoute(RouteFallback)
	m.IncSynthesisPath(types.PathContext)
	m.IncRerankDegraded("vector")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendCalls.WithLabelValues("web", OutcomeTimeout)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.backendCalls.WithLabelValues("vector", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routeDecisions.WithLabelValues(RouteFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.synthesisPaths.WithLabelValues("context")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rerankDegraded.WithLabelValues("vector")))
}

func TestRecordTokens(t *testing.T) {
	m := New()
	ctx := types.WithUsage(context.Background(), types.UsageAnswer)

	require.NoError(t, m.RecordTokens(ctx, "gpt-4o-mini", &types.TokenUsage{PromptTokens: 10, CompletionTokens: 4}))
	require.NoError(t, m.RecordTokens(context.Background(), "gpt-4o-mini", &types.TokenUsage{PromptTokens: 1}))

	assert.Equal(t, 10.0, testutil.ToFloat64(m.tokens.WithLabelValues("gpt-4o-mini", "answer", "prompt")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.tokens.WithLabelValues("gpt-4o-mini", "answer", "completion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokens.WithLabelValues("gpt-4o-mini", "unknown", "prompt")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackendCall(types.BackendGraph, time.Now(), 1, OutcomeOK)
		m.IncRoute(RouteClassified)
		m.IncSynthesisPath(types.PathDirect)
		m.ObserveAnswer(time.Second)
		_ = m.RecordTokens(context.Background(), "m", &types.TokenUsage{})
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.IncSynthesisPath(types.PathDirect)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `multirag_synthesis_path_total{path="direct"} 1`)
}
