package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/multirag/pkg/config"
	"github.com/soundprediction/multirag/pkg/crossencoder"
	"github.com/soundprediction/multirag/pkg/graphstore"
	"github.com/soundprediction/multirag/pkg/rerank"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/vectorstore"
	"github.com/soundprediction/multirag/pkg/websearch"
)

func gypsumHits() []vectorstore.Hit {
	return []vectorstore.Hit{
		{ID: "1", Text: "Quartz is hard.", Score: 0.9},
		{ID: "2", Text: "Gypsum is used for plaster.", Score: 0.8},
		{ID: "3", Text: "Calcite fizzes in acid.", Score: 0.7},
		{ID: "4", Text: "Gypsum is used in cement.", Score: 0.6},
	}
}

func TestVectorBackendOverFetchesAndReranks(t *testing.T) {
	store := &fakeVectorStore{hits: gypsumHits()}
	scorer := crossencoder.NewMockRerankerClient(crossencoder.Config{})
	scorer.Fixed = []float64{0.1, 0.9, 0.2, 0.8}
	b := NewVectorBackend(&fakeEmbedder{}, store, rerank.New(scorer), 0, nil, nil)

	evidence, err := b.Retrieve(context.Background(), "What is gypsum used for?", Options{TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, 20, store.gotK)
	require.Len(t, evidence, 2)
	assert.Equal(t, "Gypsum is used for plaster.", evidence[0].Text)
	assert.Equal(t, "Gypsum is used in cement.", evidence[1].Text)
	assert.Equal(t, 0.9, *evidence[0].Score)
	assert.Equal(t, types.RerankOK, evidence[0].Provenance[types.ProvRerank])
	assert.Equal(t, 0.8, evidence[0].Provenance[types.ProvSimilarity])
	assert.Equal(t, 1, evidence[1].Provenance[types.ProvRank])
}

func TestVectorBackendDegradesWhenScorerFails(t *testing.T) {
	scorer := crossencoder.NewMockRerankerClient(crossencoder.Config{})
	scorer.Err = crossencoder.ErrMockUnavailable
	b := NewVectorBackend(&fakeEmbedder{}, &fakeVectorStore{hits: gypsumHits()}, rerank.New(scorer), 10, nil, nil)

	evidence, err := b.Retrieve(context.Background(), "gypsum", Options{TopK: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"Quartz is hard.", "Gypsum is used for plaster.", "Calcite fizzes in acid."}, texts(evidence))
	for _, e := range evidence {
		assert.Nil(t, e.Score)
		assert.Equal(t, types.RerankDegraded, e.Provenance[types.ProvRerank])
	}
}

func TestVectorBackendWithoutReranker(t *testing.T) {
	b := NewVectorBackend(&fakeEmbedder{}, &fakeVectorStore{hits: gypsumHits()}, nil, 10, nil, nil)

	evidence, err := b.Retrieve(context.Background(), "gypsum", Options{TopK: 1})
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, types.RerankDisabled, evidence[0].Provenance[types.ProvRerank])
}

func TestVectorBackendErrors(t *testing.T) {
	boom := errors.New("embedding service down")
	store := &fakeVectorStore{hits: gypsumHits()}
	b := NewVectorBackend(&fakeEmbedder{err: boom}, store, nil, 10, nil, nil)

	_, err := b.Retrieve(context.Background(), "gypsum", Options{TopK: 3})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.calls)

	empty := NewVectorBackend(&fakeEmbedder{}, &fakeVectorStore{}, nil, 10, nil, nil)
	evidence, err := empty.Retrieve(context.Background(), "gypsum", Options{TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, evidence)
}

func TestGraphBackendMergesTriples(t *testing.T) {
	store := &fakeGraphStore{triples: []graphstore.Triple{
		{Source: "gypsum", Relation: "USED_IN", Target: "plaster"},
		{Source: "gypsum", Relation: "USED_IN", Target: "plaster"},
		{Source: "anhydrite", Relation: "HYDRATES_TO", Target: "gypsum"},
	}}
	b := NewGraphBackend(fakeExtractor{entities: []string{"gypsum", "selenite"}}, store, 0)

	evidence, err := b.Retrieve(context.Background(), "What is gypsum used for?", Options{})
	require.NoError(t, err)

	assert.Equal(t, graphstore.DefaultLimit, store.gotLimit)
	require.Len(t, evidence, 1)
	e := evidence[0]
	assert.Equal(t, types.BackendGraph, e.Kind)
	assert.Equal(t, "Graph Knowledge:\ngypsum -[USED_IN]-> plaster\nanhydrite -[HYDRATES_TO]-> gypsum", e.Text)
	assert.Equal(t, 1, e.Provenance[types.ProvEntityMatchCount])
	assert.Equal(t, 2, e.Provenance[types.ProvTripleCount])
	assert.Equal(t, []string{"gypsum", "selenite"}, e.Provenance[types.ProvEntities])
}

func TestGraphBackendWithoutEntitiesOrTriples(t *testing.T) {
	store := &fakeGraphStore{}
	evidence, err := NewGraphBackend(fakeExtractor{}, store, 0).Retrieve(context.Background(), "hello", Options{})
	require.NoError(t, err)
	assert.Empty(t, evidence)
	assert.Nil(t, store.gotEntity)

	evidence, err = NewGraphBackend(fakeExtractor{entities: []string{"x"}}, store, 5).Retrieve(context.Background(), "x", Options{})
	require.NoError(t, err)
	assert.Empty(t, evidence)
	assert.Equal(t, 5, store.gotLimit)
}

func TestWebBackend(t *testing.T) {
	searcher := &fakeSearcher{results: []websearch.Result{
		{Title: "Gypsum prices", URL: "https://news.example/gypsum", Snippet: "Prices rose in 2025."},
	}}

	evidence, err := NewWebBackend(searcher, 0).Retrieve(context.Background(), "gypsum price", Options{TopK: 10})
	require.NoError(t, err)

	assert.Equal(t, websearch.DefaultMaxResults, searcher.gotK)
	require.Len(t, evidence, 1)
	assert.Equal(t, "Title: Gypsum prices\nSnippet: Prices rose in 2025.", evidence[0].Text)
	assert.Equal(t, "https://news.example/gypsum", evidence[0].Provenance[types.ProvURL])

	searcher.err = errors.New("dns failure")
	_, err = NewWebBackend(searcher, 2).Retrieve(context.Background(), "q", Options{})
	assert.Error(t, err)
}

func TestBreakerBackendOpensAfterFailures(t *testing.T) {
	calls := 0
	inner := BackendFunc{BackendKind: types.BackendWeb, Fn: func(context.Context, string, Options) ([]types.Evidence, error) {
		calls++
		return nil, errors.New("503")
	}}
	b := NewBreakerBackend(inner, config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, Interval: 60, Timeout: 60}, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Retrieve(context.Background(), "q", Options{})
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Retrieve(context.Background(), "q", Options{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
	assert.Equal(t, types.BackendWeb, b.Kind())
}

func TestBreakerBackendPassesResults(t *testing.T) {
	b := NewBreakerBackend(staticBackend(types.BackendVector, 2, 0), config.CircuitBreakerConfig{}, nil, nil)
	evidence, err := b.Retrieve(context.Background(), "q", Options{})
	require.NoError(t, err)
	assert.Len(t, evidence, 2)
}
