package retrieval

import (
	"context"
	"fmt"

	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/websearch"
)

// WebBackend turns web search hits into evidence.
type WebBackend struct {
	searcher   websearch.Searcher
	maxResults int
}

// NewWebBackend creates a web backend returning at most maxResults hits.
func NewWebBackend(searcher websearch.Searcher, maxResults int) *WebBackend {
	if maxResults <= 0 {
		maxResults = websearch.DefaultMaxResults
	}
	return &WebBackend{searcher: searcher, maxResults: maxResults}
}

func (w *WebBackend) Kind() types.BackendKind { return types.BackendWeb }

// Retrieve implements Backend. The result count is fixed by configuration,
// not by the request's TopK.
func (w *WebBackend) Retrieve(ctx context.Context, query string, _ Options) ([]types.Evidence, error) {
	results, err := w.searcher.Search(ctx, query, w.maxResults)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	evidence := make([]types.Evidence, 0, len(results))
	for i, r := range results {
		evidence = append(evidence, types.Evidence{
			Kind: types.BackendWeb,
			Text: fmt.Sprintf("Title: %s\nSnippet: %s", r.Title, r.Snippet),
			Provenance: map[string]any{
				types.ProvRank:  i,
				types.ProvURL:   r.URL,
				types.ProvTitle: r.Title,
			},
		})
	}
	return evidence, nil
}
