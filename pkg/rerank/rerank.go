// Package rerank orders retrieval candidates by relevance to a query and
// degrades to native order when the scorer fails.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/soundprediction/multirag/pkg/crossencoder"
)

// Ranked is one reranked candidate.
type Ranked struct {
	// Index is the position of the candidate in the input slice.
	Index int
	// Score is the scorer output, 0 when Degraded.
	Score float64
	// Degraded marks output produced without a usable score.
	Degraded bool
}

// Reranker scores candidates with a crossencoder.Client.
type Reranker struct {
	scorer crossencoder.Client
}

// New creates a reranker. A nil scorer makes every call degrade.
func New(scorer crossencoder.Client) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank returns candidates sorted by descending score with ties kept in
// input order, truncated to topK (topK <= 0 keeps all). If scoring fails the
// first topK candidates are returned in input order, marked Degraded, along
// with the scoring error so callers can log it.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []string, topK int) ([]Ranked, error) {
	if len(candidates) == 0 {
		return []Ranked{}, nil
	}
	n := len(candidates)
	if topK > 0 && topK < n {
		n = topK
	}

	scores, err := r.score(ctx, query, candidates)
	if err != nil {
		return Degraded(len(candidates), n), err
	}

	ranked := make([]Ranked, len(candidates))
	for i, s := range scores {
		ranked[i] = Ranked{Index: i, Score: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked[:n], nil
}

func (r *Reranker) score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if r.scorer == nil {
		return nil, fmt.Errorf("no relevance scorer configured")
	}
	scores, err := r.scorer.Score(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("relevance scoring failed: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("%w: %d candidates, %d scores", crossencoder.ErrScoreCount, len(candidates), len(scores))
	}
	return scores, nil
}

// Degraded returns the first n of total candidates in native order.
func Degraded(total, n int) []Ranked {
	if n > total || n <= 0 {
		n = total
	}
	out := make([]Ranked, n)
	for i := range out {
		out[i] = Ranked{Index: i, Degraded: true}
	}
	return out
}
