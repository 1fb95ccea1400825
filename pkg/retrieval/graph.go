package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/multirag/pkg/graphstore"
	"github.com/soundprediction/multirag/pkg/types"
)

// GraphBackend extracts entities from the query and returns their one-hop
// neighbourhood as a single evidence item.
type GraphBackend struct {
	extractor graphstore.EntityExtractor
	store     graphstore.Store
	limit     int
}

// NewGraphBackend creates a graph backend. limit <= 0 uses graphstore.DefaultLimit.
func NewGraphBackend(extractor graphstore.EntityExtractor, store graphstore.Store, limit int) *GraphBackend {
	if limit <= 0 {
		limit = graphstore.DefaultLimit
	}
	return &GraphBackend{extractor: extractor, store: store, limit: limit}
}

func (g *GraphBackend) Kind() types.BackendKind { return types.BackendGraph }

// Retrieve implements Backend. A query without recognisable entities yields
// no evidence.
func (g *GraphBackend) Retrieve(ctx context.Context, query string, _ Options) ([]types.Evidence, error) {
	entities, err := g.extractor.Extract(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}

	triples, err := g.store.Neighbors(ctx, entities, g.limit)
	if err != nil {
		return nil, fmt.Errorf("graph lookup failed: %w", err)
	}
	triples = graphstore.Dedupe(triples)
	if len(triples) == 0 {
		return nil, nil
	}

	lines := make([]string, len(triples))
	for i, t := range triples {
		lines[i] = t.String()
	}

	return []types.Evidence{{
		Kind: types.BackendGraph,
		Text: "Graph Knowledge:\n" + strings.Join(lines, "\n"),
		Provenance: map[string]any{
			types.ProvRank:             0,
			types.ProvEntities:         entities,
			types.ProvEntityMatchCount: matchedEntities(entities, triples),
			types.ProvTripleCount:      len(triples),
		},
	}}, nil
}

// matchedEntities counts entities contained in at least one triple endpoint.
func matchedEntities(entities []string, triples []graphstore.Triple) int {
	n := 0
	for _, e := range entities {
		for _, t := range triples {
			if strings.Contains(t.Source, e) || strings.Contains(t.Target, e) {
				n++
				break
			}
		}
	}
	return n
}
