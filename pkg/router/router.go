// Package router classifies questions into the evidence sources that should
// answer them.
//
// Classification failures never surface as errors: Route falls back to the
// internal knowledge sources (vector and graph), never to web search and never
// to a direct answer.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/prompts"
	"github.com/soundprediction/multirag/pkg/types"
)

// ErrEmptyRoute is returned by Classify when the model names datasources but
// none of them is known.
var ErrEmptyRoute = errors.New("router selected no datasource")

// DatasourceGenerate is the label for answering without retrieval.
const DatasourceGenerate = "generate"

// Router decides which backends answer a question.
type Router struct {
	client  nlp.Client
	prompt  prompts.RoutePrompt
	cache   *lru.Cache[string, types.RouteDecision]
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option customizes New.
type Option func(*Router)

// WithCacheSize caches successful decisions by normalized query. Zero disables
// the cache.
func WithCacheSize(size int) Option {
	return func(r *Router) {
		if size <= 0 {
			r.cache = nil
			return
		}
		cache, err := lru.New[string, types.RouteDecision](size)
		if err == nil {
			r.cache = cache
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics counts decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a router over client.
func New(client nlp.Client, opts ...Option) *Router {
	r := &Router{
		client: client,
		prompt: prompts.NewRouteVersions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies query. It always returns a usable decision; on failure the
// decision is types.FallbackRoute with the failure as Reason.
func (r *Router) Route(ctx context.Context, query string) types.RouteDecision {
	key := normalize(query)
	if r.cache != nil {
		if d, ok := r.cache.Get(key); ok {
			r.metrics.IncRoute(metrics.RouteCached)
			return d
		}
	}

	decision, err := r.Classify(ctx, query)
	if err != nil {
		r.metrics.IncRoute(metrics.RouteFallback)
		r.logger.WarnContext(ctx, "Router failed, using fallback route",
			"request_id", types.RequestIDFromContext(ctx),
			"error", err)
		return types.FallbackRoute(err.Error())
	}

	r.metrics.IncRoute(metrics.RouteClassified)
	if r.cache != nil {
		r.cache.Add(key, decision)
	}
	return decision
}

// Classify asks the model for datasources and reports any failure.
func (r *Router) Classify(ctx context.Context, query string) (types.RouteDecision, error) {
	messages, err := r.prompt.Classify().Call(map[string]any{"query": query})
	if err != nil {
		return types.RouteDecision{}, err
	}
	resp, err := r.client.ChatJSON(types.WithUsage(ctx, types.UsageRouter), messages)
	if err != nil {
		return types.RouteDecision{}, fmt.Errorf("route classification failed: %w", err)
	}
	prompts.LogResponse(r.logger, resp)

	var out prompts.RouteResponse
	if err := nlp.DecodeJSON(resp.Content, &out); err != nil {
		return types.RouteDecision{}, fmt.Errorf("undecodable route: %w", err)
	}
	return Decide(out.Datasources)
}

// Decide turns datasource labels into a decision. "generate" anywhere in the
// list means a direct answer. Unknown labels are dropped. An empty list is a
// valid decision with no backends; a list of only unknown labels is
// ErrEmptyRoute.
func Decide(datasources []string) (types.RouteDecision, error) {
	var d types.RouteDecision
	if len(datasources) == 0 {
		d.Reason = "no datasource selected"
		return d, nil
	}
	seen := make(map[types.BackendKind]bool)
	for _, s := range datasources {
		label := strings.ToLower(strings.TrimSpace(s))
		if label == DatasourceGenerate {
			d.Direct = true
			continue
		}
		kind, err := types.ParseBackendKind(label)
		if err != nil || seen[kind] {
			continue
		}
		seen[kind] = true
		d.Backends = append(d.Backends, kind)
	}
	if d.Direct {
		d.Backends = nil
		return d, nil
	}
	if len(d.Backends) == 0 {
		return types.RouteDecision{}, fmt.Errorf("%w: %v", ErrEmptyRoute, datasources)
	}
	return d, nil
}

func normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
