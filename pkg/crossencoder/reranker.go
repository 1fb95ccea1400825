package crossencoder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/soundprediction/multirag/pkg/utils"
)

// RerankerConfig configures an HTTP reranking service.
type RerankerConfig struct {
	Config
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// RerankerClient calls a /rerank endpoint. Request and response follow the
// shape shared by text-embeddings-inference, Jina and vLLM:
//
//	{"model": "...", "query": "...", "documents": ["..."]}
//	{"results": [{"index": 0, "relevance_score": 3.2}]}
type RerankerClient struct {
	http   *resty.Client
	config RerankerConfig
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// NewRerankerClient creates a client for an HTTP reranker.
func NewRerankerClient(config RerankerConfig) *RerankerClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 3
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	return &RerankerClient{http: client, config: config}
}

// Score sends passages in batches and reassembles index-aligned scores.
func (c *RerankerClient) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	batches := utils.Batch(passages, c.config.BatchSize)
	results, errs := utils.MapConcurrent(ctx, c.config.MaxConcurrency, batches, func(ctx context.Context, batch []string) ([]float64, error) {
		return c.scoreBatch(ctx, query, batch)
	})
	if err := utils.FirstError(errs); err != nil {
		return nil, err
	}

	scores := make([]float64, 0, len(passages))
	for _, r := range results {
		scores = append(scores, r...)
	}
	return scores, nil
}

func (c *RerankerClient) scoreBatch(ctx context.Context, query string, batch []string) ([]float64, error) {
	var out rerankResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rerankRequest{
			Model:     c.config.Model,
			Query:     query,
			Documents: batch,
			TopN:      len(batch),
		}).
		SetResult(&out).
		Post("/rerank")
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rerank request failed: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(out.Results) != len(batch) {
		return nil, fmt.Errorf("%w: %d passages, %d scores", ErrScoreCount, len(batch), len(out.Results))
	}

	scores := make([]float64, len(batch))
	seen := make([]bool, len(batch))
	for _, r := range out.Results {
		if r.Index < 0 || r.Index >= len(batch) || seen[r.Index] {
			return nil, fmt.Errorf("rerank response has invalid index %d", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}

// Close cleans up any resources used by the client
func (c *RerankerClient) Close() error {
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
