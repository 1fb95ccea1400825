package crossencoder

import (
	"context"
	"fmt"

	"github.com/soundprediction/multirag/pkg/embedder"
	"github.com/soundprediction/multirag/pkg/utils"
)

// EmbeddingRerankerClient scores passages by cosine similarity between the
// query embedding and each passage embedding. It is a bi-encoder stand-in for
// a true cross-encoder.
type EmbeddingRerankerClient struct {
	embedder embedder.Client
	config   Config
}

// NewEmbeddingRerankerClient creates a new embedding-based reranker client
func NewEmbeddingRerankerClient(embedderClient embedder.Client, config Config) *EmbeddingRerankerClient {
	return &EmbeddingRerankerClient{
		embedder: embedderClient,
		config:   config,
	}
}

// Score embeds the query and passages in one request.
func (c *EmbeddingRerankerClient) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	vectors, err := c.embedder.Embed(ctx, append([]string{query}, passages...))
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(passages)+1 {
		return nil, fmt.Errorf("%w: %d passages, %d embeddings", ErrScoreCount, len(passages), len(vectors)-1)
	}

	scores := make([]float64, len(passages))
	for i := range passages {
		scores[i] = utils.CosineSimilarity(vectors[0], vectors[i+1])
	}
	return scores, nil
}

// Close cleans up any resources used by the client
func (c *EmbeddingRerankerClient) Close() error {
	return nil
}
