package crossencoder

import (
	"context"
	"errors"
	"sync/atomic"
)

// MockRerankerClient scores passages by the fraction of query terms they
// contain. Set Err to make every call fail.
type MockRerankerClient struct {
	config Config
	Err    error
	// Fixed, when set, is returned as-is regardless of input.
	Fixed []float64
	calls atomic.Int64
}

// NewMockRerankerClient creates a deterministic reranker for tests.
func NewMockRerankerClient(config Config) *MockRerankerClient {
	return &MockRerankerClient{config: config}
}

// Score implements Client
func (c *MockRerankerClient) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Fixed != nil {
		return c.Fixed, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(query)
	scores := make([]float64, len(passages))
	if len(terms) == 0 {
		return scores, nil
	}
	for i, p := range passages {
		present := termFrequencies(p)
		hits := 0
		for _, t := range terms {
			if present[t] > 0 {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(terms))
	}
	return scores, nil
}

// Calls reports how many times Score ran.
func (c *MockRerankerClient) Calls() int {
	return int(c.calls.Load())
}

// Close cleans up any resources used by the client
func (c *MockRerankerClient) Close() error {
	return nil
}

// ErrMockUnavailable is a convenience failure for tests.
var ErrMockUnavailable = errors.New("mock reranker unavailable")
