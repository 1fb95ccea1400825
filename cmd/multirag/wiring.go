package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/soundprediction/multirag"
	"github.com/soundprediction/multirag/pkg/alert"
	"github.com/soundprediction/multirag/pkg/config"
	"github.com/soundprediction/multirag/pkg/crossencoder"
	"github.com/soundprediction/multirag/pkg/decompose"
	"github.com/soundprediction/multirag/pkg/embedder"
	"github.com/soundprediction/multirag/pkg/generation"
	"github.com/soundprediction/multirag/pkg/graphstore"
	"github.com/soundprediction/multirag/pkg/logger"
	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/rerank"
	"github.com/soundprediction/multirag/pkg/retrieval"
	"github.com/soundprediction/multirag/pkg/router"
	"github.com/soundprediction/multirag/pkg/telemetry"
	"github.com/soundprediction/multirag/pkg/vectorstore"
	"github.com/soundprediction/multirag/pkg/websearch"
)

// app holds the engine and everything that must be closed with it.
type app struct {
	Client  *multirag.Client
	Metrics *metrics.Metrics

	closers []func() error
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// setupLogger builds the process logger. Error records are additionally
// written to Parquet files when a telemetry path is configured.
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	base := logger.NewLogger(os.Stderr, logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Color:  true,
	})
	if cfg.Telemetry.ParquetPath == "" {
		return base, func() {}
	}

	handler, err := telemetry.NewParquetHandler(base.Handler(), cfg.Telemetry.ParquetPath)
	if err != nil {
		base.Warn("Failed to initialize error tracking", "error", err)
		return base, func() {}
	}
	log := slog.New(handler)
	return log, func() {
		if err := handler.Close(); err != nil {
			base.Warn("Failed to flush error tracking", "error", err)
		}
	}
}

// buildApp constructs the engine from configuration. Backends that are
// disabled in configuration are left out; a backend whose store cannot be
// reached is also left out, with a warning, so the remaining ones still
// serve.
func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	alerter := alert.New(cfg.Alert, log)

	llm, err := buildLLM(cfg, a, alerter, log)
	if err != nil {
		return nil, err
	}

	var emb embedder.Client
	if cfg.Vector.Enabled || strings.EqualFold(cfg.Rerank.Provider, string(crossencoder.ProviderEmbedding)) {
		emb, err = buildEmbedder(cfg, a)
		if err != nil {
			return nil, err
		}
	}

	scorer, err := crossencoder.NewClient(crossencoder.ClientConfig{
		Provider:       crossencoder.Provider(strings.ToLower(cfg.Rerank.Provider)),
		Config:         crossencoder.Config{Model: cfg.Rerank.Model, MaxConcurrency: cfg.Rerank.MaxConcurrency},
		LLMClient:      llm,
		EmbedderClient: emb,
		RerankerConfig: &crossencoder.RerankerConfig{
			BaseURL: cfg.Rerank.BaseURL,
			APIKey:  cfg.Rerank.APIKey,
			Timeout: cfg.Rerank.Timeout,
			Config:  crossencoder.Config{Model: cfg.Rerank.Model, MaxConcurrency: cfg.Rerank.MaxConcurrency},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relevance scorer: %w", err)
	}
	a.onClose(scorer.Close)
	reranker := rerank.New(scorer)

	healthChecks := make(map[string]multirag.Pinger)
	var backends []retrieval.Backend

	if cfg.Vector.Enabled {
		store, err := vectorstore.Open(ctx, cfg.Vector, log)
		if err != nil {
			log.Warn("Vector backend unavailable", "provider", cfg.Vector.Provider, "error", err)
		} else {
			a.onClose(store.Close)
			backends = append(backends, retrieval.NewVectorBackend(emb, store, reranker, cfg.Vector.OverFetchFactor, log, a.Metrics))
		}
	}

	if cfg.Graph.Enabled {
		store, err := graphstore.NewNeo4jStore(ctx, cfg.Graph)
		if err != nil {
			log.Warn("Graph backend unavailable", "uri", cfg.Graph.URI, "error", err)
		} else {
			a.onClose(func() error { return store.Close(context.Background()) })
			healthChecks["neo4j"] = store
			backends = append(backends, retrieval.NewGraphBackend(graphstore.NewLLMEntityExtractor(llm), store, cfg.Graph.MaxRows))
		}
	}

	if cfg.Web.Enabled {
		searcher, err := websearch.New(cfg.Web)
		if err != nil {
			log.Warn("Web backend unavailable", "provider", cfg.Web.Provider, "error", err)
		} else {
			backends = append(backends, retrieval.NewWebBackend(searcher, cfg.Web.MaxResults))
		}
	}

	if cfg.Orchestrator.BackendBreaker {
		for i, b := range backends {
			backends[i] = retrieval.NewBreakerBackend(b, cfg.CircuitBreaker, alerter, log)
		}
	}

	coordinator := retrieval.NewCoordinator(backends,
		retrieval.WithBackendTimeout(cfg.Orchestrator.BackendTimeout),
		retrieval.WithLogger(log),
		retrieval.WithMetrics(a.Metrics))

	var decomposer decompose.Decomposer = decompose.Passthrough{}
	if cfg.Orchestrator.EnableDecomposition {
		decomposer = decompose.NewLLMDecomposer(llm, cfg.Orchestrator.MaxSubQueries, log)
	}

	client, err := multirag.NewClient(multirag.Components{
		Router: router.New(llm,
			router.WithCacheSize(cfg.Orchestrator.RouteCacheSize),
			router.WithLogger(log),
			router.WithMetrics(a.Metrics)),
		Decomposer:   decomposer,
		Coordinator:  coordinator,
		Reranker:     reranker,
		Synthesizer:  generation.NewSynthesizer(generation.NewLLMGenerator(llm), log),
		Metrics:      a.Metrics,
		HealthChecks: healthChecks,
	}, &multirag.Config{
		RequestTimeout: cfg.Orchestrator.RequestTimeout,
		DefaultTopK:    cfg.Orchestrator.DefaultTopK,
		MaxTopK:        cfg.Orchestrator.MaxTopK,
		RerankMerged:   cfg.Rerank.RerankMerged,
	}, log)
	if err != nil {
		return nil, err
	}
	a.Client = client

	log.Info("Engine initialized",
		"backends", client.Backends(),
		"model", cfg.NLP.Models["default"].Model,
		"scorer", cfg.Rerank.Provider,
		"decomposition", cfg.Orchestrator.EnableDecomposition)
	return a, nil
}

// buildLLM creates the routed language model client with token accounting
// into Prometheus and, when telemetry is configured, Parquet files.
func buildLLM(cfg *config.Config, a *app, alerter alert.Alerter, log *slog.Logger) (nlp.Client, error) {
	recorders := nlp.TokenRecorders{a.Metrics}
	if cfg.Telemetry.ParquetPath != "" {
		tracker, err := nlp.NewTokenTracker(cfg.Telemetry.ParquetPath)
		if err != nil {
			log.Warn("Failed to initialize token tracker", "error", err)
		} else {
			a.onClose(tracker.Close)
			recorders = append(recorders, tracker)
		}
	}

	opts := []nlp.ClientOption{
		nlp.WithLogger(log),
		nlp.WithTokenRecorder(recorders),
	}
	if cfg.CircuitBreaker.Enabled {
		opts = append(opts, nlp.WithCircuitBreaker(cfg.CircuitBreaker, alerter))
	}

	llm, err := nlp.NewClient(cfg.NLP, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create NLP client: %w", err)
	}
	a.onClose(llm.Close)
	return llm, nil
}

func buildEmbedder(cfg *config.Config, a *app) (embedder.Client, error) {
	base, err := embedder.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	cached, err := embedder.NewCachedClient(base, cfg.Embedding.CacheSize)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	a.onClose(cached.Close)
	return cached, nil
}
