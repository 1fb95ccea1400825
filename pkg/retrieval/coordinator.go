package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/utils"
)

// DefaultBackendTimeout bounds a single backend call.
const DefaultBackendTimeout = 10 * time.Second

// CallReport describes one (backend, sub-query) call.
type CallReport struct {
	Backend       types.BackendKind
	SubQuery      string
	SubQueryIndex int
	Count         int
	Latency       time.Duration
	Err           error
	TimedOut      bool
}

// Failed reports whether the call contributed no evidence because of an error.
func (r CallReport) Failed() bool { return r.Err != nil }

// Outcome is the merged result of a fan-out.
type Outcome struct {
	// Evidence is in canonical order: backend priority, then sub-query
	// index, then native rank.
	Evidence []types.Evidence
	// Calls is in the same canonical order as Evidence.
	Calls []CallReport
}

// Plan is the set of backends a request will actually query.
type Plan struct {
	Selected     []types.BackendKind
	Disabled     []types.BackendKind
	Unconfigured []types.BackendKind
}

// Coordinator runs backend calls concurrently with per-call isolation.
type Coordinator struct {
	backends map[types.BackendKind]Backend
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// CoordinatorOption customizes NewCoordinator.
type CoordinatorOption func(*Coordinator)

// WithBackendTimeout sets the per-call deadline.
func WithBackendTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records per-call metrics.
func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a coordinator over the given backends. A later
// backend of the same kind replaces an earlier one.
func NewCoordinator(backends []Backend, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		backends: make(map[types.BackendKind]Backend, len(backends)),
		timeout:  DefaultBackendTimeout,
		logger:   slog.Default(),
	}
	for _, b := range backends {
		if b != nil {
			c.backends[b.Kind()] = b
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured lists the available backends in canonical order.
func (c *Coordinator) Configured() []types.BackendKind {
	var out []types.BackendKind
	for _, k := range types.AllBackends {
		if _, ok := c.backends[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Timeout returns the per-call deadline.
func (c *Coordinator) Timeout() time.Duration { return c.timeout }

// Plan intersects the routed backends with the request flags and the
// configured backends. A direct decision selects nothing.
func (c *Coordinator) Plan(decision types.RouteDecision, opts types.AnswerOptions) Plan {
	var p Plan
	if decision.Direct {
		return p
	}
	for _, k := range types.AllBackends {
		if !decision.Has(k) {
			continue
		}
		switch {
		case !opts.Enabled(k):
			p.Disabled = append(p.Disabled, k)
		case c.backends[k] == nil:
			p.Unconfigured = append(p.Unconfigured, k)
		default:
			p.Selected = append(p.Selected, k)
		}
	}
	return p
}

// Retrieve queries every selected backend with every sub-query, except the
// web backend which only receives the first sub-query. Calls run
// concurrently and never cancel each other; a failed call adds a report and
// no evidence. The result does not depend on completion order.
func (c *Coordinator) Retrieve(ctx context.Context, subQueries []string, decision types.RouteDecision, opts types.AnswerOptions) Outcome {
	plan := c.Plan(decision, opts)
	if len(plan.Selected) == 0 || len(subQueries) == 0 {
		return Outcome{}
	}

	acc := newAccumulator()
	var g errgroup.Group
	for _, kind := range plan.Selected {
		backend := c.backends[kind]
		queries := subQueries
		if kind == types.BackendWeb {
			queries = subQueries[:1]
		}
		for i, q := range queries {
			g.Go(func() error {
				report, evidence := c.call(ctx, backend, q, i, Options{TopK: opts.TopK})
				acc.add(report, evidence)
				return nil
			})
		}
	}
	_ = g.Wait()

	return acc.outcome()
}

func (c *Coordinator) call(ctx context.Context, b Backend, query string, index int, opts Options) (CallReport, []types.Evidence) {
	start := time.Now()
	kind := b.Kind()
	report := CallReport{Backend: kind, SubQuery: query, SubQueryIndex: index}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	evidence, err := c.invoke(callCtx, b, query, opts)
	report.Latency = time.Since(start)

	requestID := types.RequestIDFromContext(ctx)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			report.TimedOut = true
			err = fmt.Errorf("%w: %s after %s", ErrBackendTimeout, kind, c.timeout)
		}
		report.Err = err
		outcome := metrics.OutcomeError
		if report.TimedOut {
			outcome = metrics.OutcomeTimeout
		}
		c.metrics.ObserveBackendCall(kind, start, 0, outcome)
		c.logger.WarnContext(ctx, "Backend call failed",
			"request_id", requestID,
			"backend", kind,
			"sub_query_index", index,
			"timed_out", report.TimedOut,
			"latency", report.Latency,
			"error", err)
		return report, nil
	}

	out := make([]types.Evidence, len(evidence))
	for i, e := range evidence {
		e = e.Clone()
		e.Kind = kind
		if e.Provenance == nil {
			e.Provenance = make(map[string]any)
		}
		if _, ok := e.Provenance[types.ProvRank]; !ok {
			e.Provenance[types.ProvRank] = i
		}
		e.Provenance[types.ProvSubQuery] = query
		e.Provenance[types.ProvSubQueryIndex] = index
		out[i] = e
	}
	report.Count = len(out)

	c.metrics.ObserveBackendCall(kind, start, len(out), metrics.OutcomeOK)
	c.logger.DebugContext(ctx, "Backend call finished",
		"request_id", requestID,
		"backend", kind,
		"sub_query_index", index,
		"results", len(out),
		"latency", report.Latency)
	return report, out
}

// invoke returns when the backend does or when ctx ends, whichever is first,
// so a backend ignoring its context cannot hold up the fan-out.
func (c *Coordinator) invoke(ctx context.Context, b Backend, query string, opts Options) ([]types.Evidence, error) {
	type result struct {
		evidence []types.Evidence
		err      error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() { done <- r }()
		defer utils.RecoverAsError(&r.err)
		r.evidence, r.err = b.Retrieve(ctx, query, opts)
	}()

	select {
	case r := <-done:
		return r.evidence, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// accumulator collects call results from concurrent goroutines. It only
// appends; ordering is imposed when the outcome is read.
type accumulator struct {
	mu      sync.Mutex
	reports []CallReport
	items   []entry
}

type entry struct {
	priority int
	subQuery int
	position int
	evidence types.Evidence
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

func (a *accumulator) add(report CallReport, evidence []types.Evidence) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reports = append(a.reports, report)
	for i, e := range evidence {
		a.items = append(a.items, entry{
			priority: report.Backend.Priority(),
			subQuery: report.SubQueryIndex,
			position: i,
			evidence: e,
		})
	}
}

func (a *accumulator) outcome() Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	items := append([]entry(nil), a.items...)
	sort.Slice(items, func(i, j int) bool {
		x, y := items[i], items[j]
		if x.priority != y.priority {
			return x.priority < y.priority
		}
		if x.subQuery != y.subQuery {
			return x.subQuery < y.subQuery
		}
		return x.position < y.position
	})

	reports := append([]CallReport(nil), a.reports...)
	sort.Slice(reports, func(i, j int) bool {
		x, y := reports[i], reports[j]
		if x.Backend.Priority() != y.Backend.Priority() {
			return x.Backend.Priority() < y.Backend.Priority()
		}
		return x.SubQueryIndex < y.SubQueryIndex
	})

	out := Outcome{Calls: reports}
	if len(items) > 0 {
		out.Evidence = make([]types.Evidence, len(items))
		for i, it := range items {
			out.Evidence[i] = it.evidence
		}
	}
	return out
}
