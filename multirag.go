package multirag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/multirag/pkg/decompose"
	"github.com/soundprediction/multirag/pkg/generation"
	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/rerank"
	"github.com/soundprediction/multirag/pkg/retrieval"
	"github.com/soundprediction/multirag/pkg/types"
)

var (
	// ErrMissingRouter is returned when no router is supplied.
	ErrMissingRouter = errors.New("multirag: router is required")
	// ErrMissingCoordinator is returned when no coordinator is supplied.
	ErrMissingCoordinator = errors.New("multirag: retrieval coordinator is required")
	// ErrMissingSynthesizer is returned when no synthesizer is supplied.
	ErrMissingSynthesizer = errors.New("multirag: answer synthesizer is required")
)

// Engine answers questions from routed, retrieved evidence.
type Engine interface {
	// Answer always returns a result; failures are reported in its trace.
	Answer(ctx context.Context, query string, opts types.AnswerOptions) *types.AnswerResult

	// Ready reports whether the engine can serve requests.
	Ready(ctx context.Context) error
}

// Router classifies a question. router.Router implements it.
type Router interface {
	Route(ctx context.Context, query string) types.RouteDecision
}

// Pinger is a dependency with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Components are the collaborators of a Client. They are built and closed by
// the caller.
type Components struct {
	Router      Router
	Decomposer  decompose.Decomposer
	Coordinator *retrieval.Coordinator
	// Reranker scores merged evidence when Config.RerankMerged is set.
	Reranker    *rerank.Reranker
	Synthesizer *generation.Synthesizer
	Metrics     *metrics.Metrics
	// HealthChecks are consulted by Ready, keyed by name.
	HealthChecks map[string]Pinger
}

// Config holds configuration for the Client.
type Config struct {
	// RequestTimeout bounds a whole Answer call.
	RequestTimeout time.Duration
	// DefaultTopK applies when a request does not set TopK.
	DefaultTopK int
	// MaxTopK caps the per-request TopK.
	MaxTopK int
	// RerankMerged rescores all merged evidence with one scorer pass.
	RerankMerged bool
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		RequestTimeout: 60 * time.Second,
		DefaultTopK:    3,
		MaxTopK:        10,
	}
}

// Client is the main implementation of Engine.
type Client struct {
	router       Router
	decomposer   decompose.Decomposer
	coordinator  *retrieval.Coordinator
	reranker     *rerank.Reranker
	synthesizer  *generation.Synthesizer
	metrics      *metrics.Metrics
	healthChecks map[string]Pinger
	config       *Config
	logger       *slog.Logger
}

var _ Engine = (*Client)(nil)

// NewClient creates a Client. Router, Coordinator and Synthesizer are
// required; a nil Decomposer means no decomposition.
func NewClient(c Components, config *Config, logger *slog.Logger) (*Client, error) {
	switch {
	case c.Router == nil:
		return nil, ErrMissingRouter
	case c.Coordinator == nil:
		return nil, ErrMissingCoordinator
	case c.Synthesizer == nil:
		return nil, ErrMissingSynthesizer
	}

	defaults := NewDefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = defaults.DefaultTopK
	}
	if config.MaxTopK < config.DefaultTopK {
		config.MaxTopK = max(defaults.MaxTopK, config.DefaultTopK)
	}
	if c.Decomposer == nil {
		c.Decomposer = decompose.Passthrough{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		router:       c.Router,
		decomposer:   c.Decomposer,
		coordinator:  c.Coordinator,
		reranker:     c.Reranker,
		synthesizer:  c.Synthesizer,
		metrics:      c.Metrics,
		healthChecks: c.HealthChecks,
		config:       config,
		logger:       logger,
	}, nil
}

// Backends lists the configured retrieval backends.
func (c *Client) Backends() []types.BackendKind {
	return c.coordinator.Configured()
}

// Ready implements Engine.
func (c *Client) Ready(ctx context.Context) error {
	if len(c.coordinator.Configured()) == 0 {
		return types.ErrNoBackendsReady
	}
	var errs []error
	for name, p := range c.healthChecks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
