package retrieval

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/utils"
)

func allEnabled() types.AnswerOptions {
	return types.AnswerOptions{TopK: 3, EnableVector: true, EnableGraph: true, EnableWeb: true}
}

func route(kinds ...types.BackendKind) types.RouteDecision {
	return types.RouteDecision{Backends: kinds}
}

func texts(evidence []types.Evidence) []string {
	out := make([]string, len(evidence))
	for i, e := range evidence {
		out[i] = e.Text
	}
	return out
}

func TestRetrieveCanonicalOrder(t *testing.T) {
	c := NewCoordinator([]Backend{
		staticBackend(types.BackendWeb, 1, 0),
		staticBackend(types.BackendVector, 2, 0),
		staticBackend(types.BackendGraph, 1, 0),
	})

	out := c.Retrieve(context.Background(), []string{"a", "b"},
		route(types.BackendVector, types.BackendWeb, types.BackendGraph), allEnabled())

	assert.Equal(t, []string{
		"graph:a:0", "graph:b:0",
		"vector:a:0", "vector:a:1", "vector:b:0", "vector:b:1",
		"web:a:0",
	}, texts(out.Evidence))
	require.Len(t, out.Calls, 5)
	assert.Equal(t, types.BackendGraph, out.Calls[0].Backend)
	assert.Equal(t, types.BackendWeb, out.Calls[4].Backend)

	e := out.Evidence[4]
	assert.Equal(t, "b", e.Provenance[types.ProvSubQuery])
	assert.Equal(t, 1, e.Provenance[types.ProvSubQueryIndex])
	assert.Equal(t, 0, e.Provenance[types.ProvRank])
}

func TestRetrieveIsIndependentOfCompletionOrder(t *testing.T) {
	build := func(seed int64) *Coordinator {
		rng := rand.New(rand.NewSource(seed))
		delay := func() time.Duration { return time.Duration(rng.Intn(20)) * time.Millisecond }
		return NewCoordinator([]Backend{
			staticBackend(types.BackendVector, 3, delay()),
			staticBackend(types.BackendGraph, 1, delay()),
			staticBackend(types.BackendWeb, 2, delay()),
		})
	}

	subQueries := []string{"q1", "q2", "q3"}
	decision := route(types.BackendVector, types.BackendGraph, types.BackendWeb)
	want := build(1).Retrieve(context.Background(), subQueries, decision, allEnabled()).Evidence
	require.Len(t, want, 3*3+3*1+2)

	for seed := int64(2); seed < 8; seed++ {
		got := build(seed).Retrieve(context.Background(), subQueries, decision, allEnabled()).Evidence
		assert.Equal(t, texts(want), texts(got), "seed %d", seed)
	}
}

func TestFailingBackendDoesNotAffectSiblings(t *testing.T) {
	boom := errors.New("graph down")
	healthy := NewCoordinator([]Backend{
		staticBackend(types.BackendVector, 3, 0),
		staticBackend(types.BackendGraph, 1, 0),
	}).Retrieve(context.Background(), []string{"q"}, route(types.BackendVector, types.BackendGraph), allEnabled())

	out := NewCoordinator([]Backend{
		staticBackend(types.BackendVector, 3, 0),
		failingBackend(types.BackendGraph, boom),
	}).Retrieve(context.Background(), []string{"q"}, route(types.BackendVector, types.BackendGraph), allEnabled())

	healthyVector := 0
	for _, e := range healthy.Evidence {
		if e.Kind == types.BackendVector {
			healthyVector++
		}
	}
	assert.Len(t, out.Evidence, healthyVector)
	for _, e := range out.Evidence {
		assert.Equal(t, types.BackendVector, e.Kind)
	}

	require.Len(t, out.Calls, 2)
	assert.ErrorIs(t, out.Calls[0].Err, boom)
	assert.False(t, out.Calls[0].TimedOut)
	assert.NoError(t, out.Calls[1].Err)
	assert.Equal(t, 3, out.Calls[1].Count)
}

func TestBackendTimeoutIsIsolated(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m := metrics.New()
	c := NewCoordinator([]Backend{
		staticBackend(types.BackendVector, 2, 0),
		blockingBackend(types.BackendWeb, release),
	}, WithBackendTimeout(50*time.Millisecond), WithMetrics(m))

	start := time.Now()
	out := c.Retrieve(context.Background(), []string{"q"}, route(types.BackendVector, types.BackendWeb), allEnabled())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"vector:q:0", "vector:q:1"}, texts(out.Evidence))

	require.Len(t, out.Calls, 2)
	web := out.Calls[1]
	assert.Equal(t, types.BackendWeb, web.Backend)
	assert.True(t, web.TimedOut)
	assert.ErrorIs(t, web.Err, ErrBackendTimeout)
}

func TestPanickingBackendIsRecovered(t *testing.T) {
	c := NewCoordinator([]Backend{
		staticBackend(types.BackendVector, 1, 0),
		BackendFunc{BackendKind: types.BackendGraph, Fn: func(context.Context, string, Options) ([]types.Evidence, error) {
			panic("nil map")
		}},
	})

	out := c.Retrieve(context.Background(), []string{"q"}, route(types.BackendVector, types.BackendGraph), allEnabled())

	assert.Len(t, out.Evidence, 1)
	var panicErr *utils.PanicError
	require.ErrorAs(t, out.Calls[0].Err, &panicErr)
	assert.Equal(t, "nil map", panicErr.Value)
}

func TestWebReceivesOnlyFirstSubQuery(t *testing.T) {
	web := &recordingBackend{kind: types.BackendWeb}
	vector := &recordingBackend{kind: types.BackendVector}
	c := NewCoordinator([]Backend{web, vector})

	c.Retrieve(context.Background(), []string{"first", "second", "third"}, route(types.BackendWeb, types.BackendVector), allEnabled())

	assert.Equal(t, []string{"first"}, web.queries)
	assert.ElementsMatch(t, []string{"first", "second", "third"}, vector.queries)
}

func TestPlan(t *testing.T) {
	c := NewCoordinator([]Backend{
		staticBackend(types.BackendVector, 1, 0),
		staticBackend(types.BackendWeb, 1, 0),
	})
	opts := types.AnswerOptions{EnableVector: true, EnableGraph: true, EnableWeb: false}

	p := c.Plan(route(types.BackendWeb, types.BackendGraph, types.BackendVector), opts)
	assert.Equal(t, []types.BackendKind{types.BackendVector}, p.Selected)
	assert.Equal(t, []types.BackendKind{types.BackendWeb}, p.Disabled)
	assert.Equal(t, []types.BackendKind{types.BackendGraph}, p.Unconfigured)

	assert.Empty(t, c.Plan(types.RouteDecision{Direct: true, Backends: []types.BackendKind{types.BackendVector}}, opts).Selected)
	assert.Equal(t, []types.BackendKind{types.BackendVector, types.BackendWeb}, c.Configured())
}

func TestRetrieveNothingSelected(t *testing.T) {
	vector := &recordingBackend{kind: types.BackendVector}
	c := NewCoordinator([]Backend{vector})

	out := c.Retrieve(context.Background(), []string{"q"}, route(types.BackendVector), types.AnswerOptions{})
	assert.Empty(t, out.Evidence)
	assert.Empty(t, out.Calls)
	assert.Empty(t, vector.queries)
}

func TestParentCancellationIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator([]Backend{staticBackend(types.BackendVector, 1, time.Second)})
	out := c.Retrieve(ctx, []string{"q"}, route(types.BackendVector), allEnabled())

	require.Len(t, out.Calls, 1)
	assert.Error(t, out.Calls[0].Err)
	assert.False(t, out.Calls[0].TimedOut)
}
