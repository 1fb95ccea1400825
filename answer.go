package multirag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/multirag/pkg/generation"
	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/prompts"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/utils"
)

// TraceDirect is the trace entry written when a question is answered without
// retrieval.
const TraceDirect = "direct answer, no retrieval"

// Answer runs Routing, Decomposing, Retrieving, Reranking and Synthesizing
// for query. Direct questions skip to Synthesizing, and so do requests whose
// routed backends are all disabled or unconfigured. Answer never fails: an
// invalid query yields a result with path "rejected", and every backend or
// model failure, panics included, is absorbed into the trace.
func (c *Client) Answer(ctx context.Context, query string, opts types.AnswerOptions) *types.AnswerResult {
	start := time.Now()
	opts = c.normalizeOptions(opts)

	ctx = types.WithRequestID(ctx, opts.RequestID)
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	state := newAggregateState(opts.RequestID, query, opts)
	log := c.logger.With("request_id", opts.RequestID)

	if err := types.ValidateQuery(query); err != nil {
		state.tracef("rejected: %v", err)
		state.answer = fmt.Sprintf("Invalid question: %v.", err)
		state.path = types.PathRejected
		log.WarnContext(ctx, "Rejected query", "error", err)
		return c.finish(ctx, state, start)
	}

	// Routing
	decision, err := c.route(ctx, query)
	if err != nil {
		c.metrics.IncRoute(metrics.RouteFallback)
		log.ErrorContext(ctx, "Router panicked, using fallback route", "error", err)
		decision = types.FallbackRoute(err.Error())
	}
	state.decision = decision
	c.traceRoute(state)
	log.InfoContext(ctx, "Routed query",
		"backends", state.decision.Backends,
		"direct", state.decision.Direct,
		"fallback", state.decision.Fallback)

	if !state.decision.Direct {
		state.plan = c.coordinator.Plan(state.decision, opts)
		for _, k := range state.plan.Disabled {
			state.tracef("%s routed but disabled for this request", k)
		}
		for _, k := range state.plan.Unconfigured {
			state.tracef("%s routed but not configured", k)
		}

		if len(state.plan.Selected) == 0 {
			state.noBackends = true
			state.tracef("no backends selected, retrieval skipped")
		} else {
			c.decomposeAndRetrieve(ctx, state)
			c.rerankMerged(ctx, state)
		}
	}

	// Synthesizing
	state.enter(stageSynthesizing)
	evidence, _ := state.snapshot()
	res := c.synthesize(ctx, generation.Input{
		Query:      query,
		Direct:     state.decision.Direct,
		Evidence:   evidence,
		NoBackends: state.noBackends,
	})
	if res.Err != nil {
		state.tracef("generation failed, returning apology: %v", res.Err)
	}
	state.answer = res.Answer
	state.path = res.Path
	state.tracef("synthesis path: %s", res.Path)

	result := c.finish(ctx, state, start)
	log.InfoContext(ctx, "Answer generated",
		"path", result.Path,
		"evidence", len(result.Evidence),
		"latency", result.Latency)
	return result
}

func (c *Client) decomposeAndRetrieve(ctx context.Context, state *aggregateState) {
	state.enter(stageDecomposing)
	subQueries, err := c.decompose(ctx, state.query)
	if err != nil {
		state.tracef("decomposition failed, using the original question: %v", err)
		c.logger.ErrorContext(ctx, "Decomposer panicked", "request_id", state.requestID, "error", err)
	}
	if len(subQueries) == 0 {
		subQueries = []string{state.query}
	}
	state.subQueries = subQueries
	if len(subQueries) > 1 {
		state.tracef("decomposed into %d sub-queries: %s", len(subQueries), strings.Join(subQueries, " | "))
	}

	state.enter(stageRetrieving)
	state.tracef("retrieving from %s", joinKinds(state.plan.Selected))
	outcome := c.coordinator.Retrieve(ctx, subQueries, state.decision, state.opts)
	state.appendEvidence(outcome.Evidence...)
	for _, call := range outcome.Calls {
		switch {
		case call.TimedOut:
			state.tracef("%s timed out after %s (sub-query %d), no evidence", call.Backend, c.coordinator.Timeout(), call.SubQueryIndex)
		case call.Err != nil:
			state.tracef("%s failed (sub-query %d): %v", call.Backend, call.SubQueryIndex, call.Err)
		default:
			state.tracef("%s returned %d items (sub-query %d)", call.Backend, call.Count, call.SubQueryIndex)
		}
	}

	evidence, _ := state.snapshot()
	c.logger.InfoContext(ctx, "Retrieved evidence",
		"request_id", state.requestID,
		"items", len(evidence),
		"calls", len(outcome.Calls))
}

// rerankMerged rescores all merged evidence with one scorer pass when enabled.
func (c *Client) rerankMerged(ctx context.Context, state *aggregateState) {
	state.enter(stageReranking)
	if !c.config.RerankMerged || c.reranker == nil {
		return
	}
	evidence, _ := state.snapshot()
	if len(evidence) < 2 {
		return
	}

	candidates := make([]string, len(evidence))
	for i, e := range evidence {
		candidates[i] = e.Text
	}
	ranked, err := c.reranker.Rerank(ctx, state.query, candidates, 0)
	if err != nil {
		c.metrics.IncRerankDegraded("merged")
		state.tracef("merged rerank degraded, keeping retrieval order: %v", err)
		return
	}

	rescored := make([]types.Evidence, len(ranked))
	for i, r := range ranked {
		e := evidence[r.Index].WithScore(r.Score)
		if e.Provenance == nil {
			e.Provenance = make(map[string]any)
		}
		e.Provenance[types.ProvMergedScore] = r.Score
		rescored[i] = e
	}
	state.replaceEvidence(rescored)
	state.tracef("reranked %d merged items", len(rescored))
}

func (c *Client) traceRoute(state *aggregateState) {
	d := state.decision
	switch {
	case d.Direct:
		state.tracef("%s", TraceDirect)
	case d.Fallback:
		state.tracef("router fallback to %s: %s", joinKinds(d.Backends), d.Reason)
	default:
		state.tracef("routed to %s", joinKinds(d.Backends))
	}
}

// route, decompose and synthesize turn a panic in a stage into an error so the
// stage can fall back.
func (c *Client) route(ctx context.Context, query string) (d types.RouteDecision, err error) {
	defer utils.RecoverAsError(&err)
	return c.router.Route(ctx, query), nil
}

func (c *Client) decompose(ctx context.Context, query string) (subQueries []string, err error) {
	defer utils.RecoverAsError(&err)
	return c.decomposer.Decompose(ctx, query), nil
}

func (c *Client) synthesize(ctx context.Context, in generation.Input) (res generation.Result) {
	var err error
	defer func() {
		if err != nil {
			res = generation.Result{Answer: prompts.ApologyAnswer, Path: types.PathApology, Err: err}
		}
	}()
	defer utils.RecoverAsError(&err)
	return c.synthesizer.Synthesize(ctx, in)
}

func (c *Client) finish(ctx context.Context, state *aggregateState, start time.Time) *types.AnswerResult {
	state.enter(stageDone)
	evidence, trace := state.snapshot()
	if evidence == nil {
		evidence = []types.Evidence{}
	}

	latency := time.Since(start)
	c.metrics.ObserveAnswer(latency)
	c.metrics.IncSynthesisPath(state.path)

	return &types.AnswerResult{
		Answer:    state.answer,
		Evidence:  evidence,
		Trace:     trace,
		Latency:   latency,
		RequestID: state.requestID,
		Route:     state.decision,
		Path:      state.path,
	}
}

// normalizeOptions clamps TopK and assigns a request id.
func (c *Client) normalizeOptions(opts types.AnswerOptions) types.AnswerOptions {
	if opts.TopK <= 0 {
		opts.TopK = c.config.DefaultTopK
	}
	if opts.TopK > c.config.MaxTopK {
		opts.TopK = c.config.MaxTopK
	}
	if opts.RequestID == "" {
		opts.RequestID = uuid.NewString()
	}
	return opts
}

func joinKinds(kinds []types.BackendKind) string {
	if len(kinds) == 0 {
		return "none"
	}
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

