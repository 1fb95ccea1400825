// Package decompose splits compound questions into sub-queries.
package decompose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/prompts"
	"github.com/soundprediction/multirag/pkg/types"
)

// DefaultMaxSubQueries caps the number of sub-queries.
const DefaultMaxSubQueries = 3

// Decomposer turns a question into one or more sub-queries. Implementations
// never return an empty slice.
type Decomposer interface {
	Decompose(ctx context.Context, query string) []string
}

// Passthrough returns the question unchanged.
type Passthrough struct{}

// Decompose implements Decomposer.
func (Passthrough) Decompose(_ context.Context, query string) []string {
	return []string{query}
}

// LLMDecomposer asks a language model for sub-queries.
type LLMDecomposer struct {
	client        nlp.Client
	prompt        prompts.DecomposePrompt
	maxSubQueries int
	logger        *slog.Logger
}

// NewLLMDecomposer creates a decomposer returning at most maxSubQueries items.
func NewLLMDecomposer(client nlp.Client, maxSubQueries int, logger *slog.Logger) *LLMDecomposer {
	if maxSubQueries <= 0 {
		maxSubQueries = DefaultMaxSubQueries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMDecomposer{
		client:        client,
		prompt:        prompts.NewDecomposeVersions(),
		maxSubQueries: maxSubQueries,
		logger:        logger,
	}
}

// Decompose implements Decomposer. Any failure yields []string{query}.
func (d *LLMDecomposer) Decompose(ctx context.Context, query string) []string {
	subQueries, err := d.split(ctx, query)
	if err != nil {
		d.logger.WarnContext(ctx, "Decomposition failed, using original query",
			"request_id", types.RequestIDFromContext(ctx),
			"error", err)
		return []string{query}
	}
	return subQueries
}

func (d *LLMDecomposer) split(ctx context.Context, query string) ([]string, error) {
	messages, err := d.prompt.Split().Call(map[string]any{
		"query":           query,
		"max_sub_queries": d.maxSubQueries,
	})
	if err != nil {
		return nil, err
	}
	resp, err := d.client.ChatJSON(types.WithUsage(ctx, types.UsageDecompose), messages)
	if err != nil {
		return nil, err
	}

	var out prompts.DecomposeResponse
	if err := nlp.DecodeJSON(resp.Content, &out); err != nil {
		return nil, err
	}
	subQueries := Clean(out.SubQueries, d.maxSubQueries)
	if len(subQueries) == 0 {
		return nil, fmt.Errorf("model returned no sub-queries")
	}
	return subQueries, nil
}

// Clean trims blanks, removes duplicates and caps the list at limit items.
func Clean(subQueries []string, limit int) []string {
	seen := make(map[string]struct{}, len(subQueries))
	var out []string
	for _, q := range subQueries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
