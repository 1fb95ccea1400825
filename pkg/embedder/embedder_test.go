package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/soundprediction/multirag/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClient returns [len(text), i] for each text
type countingClient struct {
	calls atomic.Int32
	texts [][]string
}

func (c *countingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts = append(c.texts, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
	}
	return out, nil
}

func (c *countingClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

func (c *countingClient) Dimensions() int { return 2 }
func (c *countingClient) Close() error    { return nil }

func TestCachedClient(t *testing.T) {
	inner := &countingClient{}
	cached, err := NewCachedClient(inner, 8)
	require.NoError(t, err)

	v1, err := cached.EmbedSingle(context.Background(), "quartz")
	require.NoError(t, err)
	v2, err := cached.EmbedSingle(context.Background(), "quartz")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), inner.calls.Load())

	out, err := cached.Embed(context.Background(), []string{"quartz", "feldspar", "mica"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, v1, out[0])
	assert.Equal(t, []string{"feldspar", "mica"}, inner.texts[1])
	assert.Equal(t, float32(8), out[1][0])
	assert.Equal(t, 3, cached.Len())
	assert.Equal(t, 2, cached.Dimensions())
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)

		// Answer out of order to check index placement
		data := ""
		for i := len(req.Input) - 1; i >= 0; i-- {
			if data != "" {
				data += ","
			}
			data += fmt.Sprintf(`{"object":"embedding","index":%d,"embedding":[%d,0.5]}`, i, i)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"object":"list","data":[%s],"model":"test-embed","usage":{"prompt_tokens":1,"total_tokens":1}}`, data)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(config.EmbeddingConfig{BaseURL: srv.URL, Model: "test-embed"})
	require.NoError(t, err)

	out, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, v := range out {
		assert.Equal(t, float32(i), v[0])
	}
	assert.Equal(t, 2, e.Dimensions())
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(config.EmbeddingConfig{})
	assert.Error(t, err)
}
