/*
Package crossencoder scores passages by relevance to a query.

The answer pipeline uses a cross-encoder to pick the best few vector hits
out of an over-fetched candidate set, and optionally to rescore the merged
evidence of all backends.

Usage:

	scorer, err := crossencoder.NewClient(crossencoder.ClientConfig{
		Provider: crossencoder.ProviderReranker,
		RerankerConfig: &crossencoder.RerankerConfig{
			BaseURL: "http://localhost:8080",
			Config:  crossencoder.Config{Model: "BAAI/bge-reranker-base"},
		},
	})
	scores, err := scorer.Score(ctx, "lithium minerals", passages)

Providers:
  - reranker: HTTP /rerank API (text-embeddings-inference, Jina, vLLM and compatible)
  - openai: an LLM judges each passage relevant or not
  - embedding: cosine similarity of query and passage embeddings
  - local: cosine similarity of term frequency vectors, no network
  - mock: deterministic word overlap for tests
*/
package crossencoder

import (
	"fmt"

	"github.com/soundprediction/multirag/pkg/embedder"
	"github.com/soundprediction/multirag/pkg/nlp"
)

// Provider represents the type of cross-encoder provider
type Provider string

const (
	// ProviderOpenAI uses an LLM as a boolean relevance judge
	ProviderOpenAI Provider = "openai"

	// ProviderLocal uses local text similarity algorithms
	ProviderLocal Provider = "local"

	// ProviderMock uses mock implementation for testing
	ProviderMock Provider = "mock"

	// ProviderReranker uses HTTP reranking APIs
	ProviderReranker Provider = "reranker"

	// ProviderEmbedding uses embedding-based similarity for reranking
	ProviderEmbedding Provider = "embedding"
)

// ClientConfig holds configuration for creating cross-encoder clients
type ClientConfig struct {
	Provider       Provider        `json:"provider"`
	Config         Config          `json:"config"`
	LLMClient      nlp.Client      `json:"-"`
	EmbedderClient embedder.Client `json:"-"`
	RerankerConfig *RerankerConfig `json:"reranker_config,omitempty"`
}

// NewClient creates a new cross-encoder client based on the provider type
func NewClient(clientConfig ClientConfig) (Client, error) {
	switch clientConfig.Provider {
	case ProviderOpenAI:
		if clientConfig.LLMClient == nil {
			return nil, fmt.Errorf("LLM client is required for OpenAI provider")
		}
		return NewOpenAIRerankerClient(clientConfig.LLMClient, clientConfig.Config), nil

	case ProviderLocal, "":
		return NewLocalRerankerClient(clientConfig.Config), nil

	case ProviderMock:
		return NewMockRerankerClient(clientConfig.Config), nil

	case ProviderReranker:
		rerankerConfig := RerankerConfig{Config: clientConfig.Config}
		if clientConfig.RerankerConfig != nil {
			rerankerConfig = *clientConfig.RerankerConfig
		}
		if rerankerConfig.BaseURL == "" {
			return nil, fmt.Errorf("base URL is required for reranker provider")
		}
		return NewRerankerClient(rerankerConfig), nil

	case ProviderEmbedding:
		if clientConfig.EmbedderClient == nil {
			return nil, fmt.Errorf("embedder client is required for embedding provider")
		}
		return NewEmbeddingRerankerClient(clientConfig.EmbedderClient, clientConfig.Config), nil

	default:
		return nil, fmt.Errorf("unsupported cross-encoder provider: %s", clientConfig.Provider)
	}
}

// DefaultConfig returns a default configuration for the given provider
func DefaultConfig(provider Provider) Config {
	switch provider {
	case ProviderOpenAI:
		return Config{
			Model:          "gpt-4o-mini",
			BatchSize:      10,
			MaxConcurrency: 5,
		}
	case ProviderReranker:
		return Config{
			Model:          "BAAI/bge-reranker-base",
			BatchSize:      64,
			MaxConcurrency: 3,
		}
	case ProviderEmbedding:
		return Config{
			BatchSize:      50,
			MaxConcurrency: 10,
		}
	default:
		return Config{BatchSize: 100}
	}
}
