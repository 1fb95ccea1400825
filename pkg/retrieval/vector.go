package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/multirag/pkg/embedder"
	"github.com/soundprediction/multirag/pkg/metrics"
	"github.com/soundprediction/multirag/pkg/rerank"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/vectorstore"
)

// DefaultOverFetchFactor is how many candidates per final item the vector
// backend asks the store for before reranking.
const DefaultOverFetchFactor = 10

// VectorBackend embeds the query, over-fetches from the vector store and
// reranks down to TopK.
type VectorBackend struct {
	embedder  embedder.Client
	store     vectorstore.Store
	reranker  *rerank.Reranker
	overFetch int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewVectorBackend creates a vector backend. A nil reranker keeps the store
// order and marks evidence with rerank=disabled.
func NewVectorBackend(emb embedder.Client, store vectorstore.Store, reranker *rerank.Reranker, overFetch int, logger *slog.Logger, m *metrics.Metrics) *VectorBackend {
	if overFetch <= 0 {
		overFetch = DefaultOverFetchFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorBackend{
		embedder:  emb,
		store:     store,
		reranker:  reranker,
		overFetch: overFetch,
		logger:    logger,
		metrics:   m,
	}
}

func (v *VectorBackend) Kind() types.BackendKind { return types.BackendVector }

// Retrieve implements Backend.
func (v *VectorBackend) Retrieve(ctx context.Context, query string, opts Options) ([]types.Evidence, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = types.DefaultAnswerOptions().TopK
	}

	vector, err := v.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := v.store.Search(ctx, vector, topK*v.overFetch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ranked, status := v.rank(ctx, query, hits, topK)

	evidence := make([]types.Evidence, 0, len(ranked))
	for i, r := range ranked {
		hit := hits[r.Index]
		prov := map[string]any{
			types.ProvRank:       i,
			types.ProvSimilarity: hit.Score,
			types.ProvRerank:     status,
		}
		if hit.ID != "" {
			prov["id"] = hit.ID
		}
		if src, ok := hit.Metadata["source"]; ok {
			prov["source"] = src
		}
		e := types.Evidence{Kind: types.BackendVector, Text: hit.Text, Provenance: prov}
		if status == types.RerankOK {
			e.Score = types.Float64(r.Score)
		}
		evidence = append(evidence, e)
	}
	return evidence, nil
}

func (v *VectorBackend) rank(ctx context.Context, query string, hits []vectorstore.Hit, topK int) ([]rerank.Ranked, string) {
	n := min(topK, len(hits))
	if v.reranker == nil {
		return rerank.Degraded(len(hits), n), types.RerankDisabled
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	ranked, err := v.reranker.Rerank(ctx, query, texts, topK)
	if err != nil {
		v.logger.WarnContext(ctx, "Vector rerank degraded to store order",
			"request_id", types.RequestIDFromContext(ctx),
			"candidates", len(hits),
			"error", err)
		v.metrics.IncRerankDegraded(string(types.BackendVector))
		return ranked, types.RerankDegraded
	}
	return ranked, types.RerankOK
}
