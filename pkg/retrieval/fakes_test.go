package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soundprediction/multirag/pkg/graphstore"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/vectorstore"
	"github.com/soundprediction/multirag/pkg/websearch"
)

// staticBackend returns n evidence items per query after an optional delay.
func staticBackend(kind types.BackendKind, n int, delay time.Duration) Backend {
	return BackendFunc{BackendKind: kind, Fn: func(ctx context.Context, query string, opts Options) ([]types.Evidence, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		out := make([]types.Evidence, n)
		for i := range out {
			out[i] = types.Evidence{
				Kind:       kind,
				Text:       fmt.Sprintf("%s:%s:%d", kind, query, i),
				Provenance: map[string]any{types.ProvRank: i},
			}
		}
		return out, nil
	}}
}

func failingBackend(kind types.BackendKind, err error) Backend {
	return BackendFunc{BackendKind: kind, Fn: func(context.Context, string, Options) ([]types.Evidence, error) {
		return nil, err
	}}
}

// blockingBackend ignores its context and never returns until released.
func blockingBackend(kind types.BackendKind, release <-chan struct{}) Backend {
	return BackendFunc{BackendKind: kind, Fn: func(context.Context, string, Options) ([]types.Evidence, error) {
		<-release
		return []types.Evidence{{Kind: kind, Text: "late"}}, nil
	}}
}

// recordingBackend remembers every query it receives.
type recordingBackend struct {
	kind    types.BackendKind
	mu      sync.Mutex
	queries []string
}

func (r *recordingBackend) Kind() types.BackendKind { return r.kind }

func (r *recordingBackend) Retrieve(_ context.Context, query string, _ Options) ([]types.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	return []types.Evidence{{Kind: r.kind, Text: query}}, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, f.err
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }
func (f *fakeEmbedder) Close() error    { return nil }

type fakeVectorStore struct {
	hits  []vectorstore.Hit
	gotK  int
	calls int
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Hit, error) {
	f.calls++
	f.gotK = k
	if k < len(f.hits) {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeVectorStore) Close() error { return nil }

type fakeExtractor struct {
	entities []string
	err      error
}

func (f fakeExtractor) Extract(context.Context, string) ([]string, error) {
	return f.entities, f.err
}

type fakeGraphStore struct {
	triples   []graphstore.Triple
	err       error
	gotLimit  int
	gotEntity []string
}

func (f *fakeGraphStore) Neighbors(ctx context.Context, entities []string, limit int) ([]graphstore.Triple, error) {
	f.gotEntity = entities
	f.gotLimit = limit
	return f.triples, f.err
}

func (f *fakeGraphStore) Close(context.Context) error { return nil }

type fakeSearcher struct {
	results []websearch.Result
	err     error
	gotK    int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]websearch.Result, error) {
	f.gotK = k
	return f.results, f.err
}
