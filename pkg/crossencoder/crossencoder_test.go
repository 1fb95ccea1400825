package crossencoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRerankerClient(t *testing.T) {
	client := NewMockRerankerClient(DefaultConfig(ProviderMock))
	defer client.Close()

	query := "lithium mica minerals"
	passages := []string{
		"Cats are cute animals",
		"Lepidolite is a lithium mica",
		"Lithium minerals include spodumene and lithium mica",
	}

	results, err := Rank(context.Background(), client, query, passages)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 2, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, 0, results[2].Index)
	assert.Equal(t, 0.0, results[2].Score)
	assert.Equal(t, 1, client.Calls())
}

func TestRankStableOnTies(t *testing.T) {
	client := NewMockRerankerClient(Config{})
	client.Fixed = []float64{0.5, 0.9, 0.5, 0.5}

	results, err := Rank(context.Background(), client, "q", []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	idx := []int{}
	for _, r := range results {
		idx = append(idx, r.Index)
	}
	assert.Equal(t, []int{1, 0, 2, 3}, idx)
}

func TestRankScoreCountMismatch(t *testing.T) {
	client := NewMockRerankerClient(Config{})
	client.Fixed = []float64{0.5}

	_, err := Rank(context.Background(), client, "q", []string{"a", "b"})
	assert.ErrorIs(t, err, ErrScoreCount)
}

func TestLocalRerankerClient(t *testing.T) {
	client := NewLocalRerankerClient(DefaultConfig(ProviderLocal))
	defer client.Close()

	scores, err := client.Score(context.Background(), "锂云母 lithium", []string{
		"锂云母是一种含锂的云母",
		"Cooking recipes for dinner tonight",
		"lithium",
	})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Greater(t, scores[0], scores[1])
	assert.Greater(t, scores[2], scores[1])
	assert.Equal(t, 0.0, scores[1])
}

func TestEmptyPassages(t *testing.T) {
	results, err := Rank(context.Background(), NewMockRerankerClient(Config{}), "test query", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerankerClient(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge", req.Model)

		// Sorted best first, like real rerank servers
		res := rerankResponse{}
		for i := len(req.Documents) - 1; i >= 0; i-- {
			res.Results = append(res.Results, rerankResult{Index: i, RelevanceScore: float64(len(req.Documents[i]))})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}))
	defer srv.Close()

	client := NewRerankerClient(RerankerConfig{
		Config:  Config{Model: "bge", BatchSize: 2},
		BaseURL: srv.URL,
		APIKey:  "secret",
	})

	scores, err := client.Score(context.Background(), "q", []string{"a", "bbb", "cc", "dddd", "e"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2, 4, 1}, scores)
	assert.Equal(t, int32(3), requests.Load())
}

func TestRerankerClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewRerankerClient(RerankerConfig{BaseURL: srv.URL})
	_, err := client.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOpenAIRerankerClient(t *testing.T) {
	llm := nlp.NewMockClient(nil)
	llm.Handler = func(ctx context.Context, usage string, msgs []types.Message) (string, error) {
		assert.Equal(t, types.UsageRerank, usage)
		if len(msgs) == 2 && strings.Contains(msgs[1].Content, "<PASSAGE>\nlithium mica\n</PASSAGE>") {
			return "True", nil
		}
		return "False.", nil
	}

	client := NewOpenAIRerankerClient(llm, Config{MaxConcurrency: 2})
	scores, err := client.Score(context.Background(), "lithium", []string{"lithium mica", "granite"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 0.2}, scores)
}

func TestBooleanScore(t *testing.T) {
	assert.Equal(t, 0.8, booleanScore(`"Yes", it is`))
	assert.Equal(t, 0.2, booleanScore("no"))
	assert.Equal(t, 0.5, booleanScore("maybe"))
	assert.Equal(t, 0.5, booleanScore(""))
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{"mock", ClientConfig{Provider: ProviderMock}, false},
		{"local", ClientConfig{Provider: ProviderLocal}, false},
		{"empty provider defaults to local", ClientConfig{}, false},
		{"openai without llm", ClientConfig{Provider: ProviderOpenAI}, true},
		{"openai", ClientConfig{Provider: ProviderOpenAI, LLMClient: nlp.NewMockClient(nil)}, false},
		{"reranker without url", ClientConfig{Provider: ProviderReranker}, true},
		{"reranker", ClientConfig{Provider: ProviderReranker, RerankerConfig: &RerankerConfig{BaseURL: "http://x"}}, false},
		{"embedding without embedder", ClientConfig{Provider: ProviderEmbedding}, true},
		{"unknown", ClientConfig{Provider: "cohere"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, c.Close())
		})
	}
}
