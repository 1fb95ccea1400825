package crossencoder

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrScoreCount is returned when a provider scores a different number of
// passages than it was given.
var ErrScoreCount = errors.New("score count does not match passage count")

// Client scores passages against a query.
type Client interface {
	// Score returns one relevance score per passage, index-aligned with the
	// input. Higher is more relevant; the scale is provider specific.
	Score(ctx context.Context, query string, passages []string) ([]float64, error)

	// Close cleans up any resources used by the client
	Close() error
}

// Config holds common cross-encoder settings
type Config struct {
	Model          string `json:"model,omitempty"`
	BatchSize      int    `json:"batch_size,omitempty"`
	MaxConcurrency int    `json:"max_concurrency,omitempty"`
}

// RankedPassage is a passage with its score and position in the input.
type RankedPassage struct {
	Index   int     `json:"index"`
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// Rank scores passages with c and returns them best first. Equal scores keep
// input order.
func Rank(ctx context.Context, c Client, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}
	scores, err := c.Score(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(passages) {
		return nil, fmt.Errorf("%w: %d passages, %d scores", ErrScoreCount, len(passages), len(scores))
	}

	ranked := make([]RankedPassage, len(passages))
	for i, p := range passages {
		ranked[i] = RankedPassage{Index: i, Passage: p, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}
