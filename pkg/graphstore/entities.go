package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/prompts"
	"github.com/soundprediction/multirag/pkg/types"
)

// EntityExtractor pulls lookup keys out of a question.
type EntityExtractor interface {
	Extract(ctx context.Context, query string) ([]string, error)
}

// LLMEntityExtractor asks a language model for the entities of a question.
type LLMEntityExtractor struct {
	client nlp.Client
	prompt prompts.EntitiesPrompt
}

// NewLLMEntityExtractor creates an extractor using the default prompt.
func NewLLMEntityExtractor(client nlp.Client) *LLMEntityExtractor {
	return &LLMEntityExtractor{
		client: client,
		prompt: prompts.NewEntitiesVersions(),
	}
}

// Extract implements EntityExtractor.
func (e *LLMEntityExtractor) Extract(ctx context.Context, query string) ([]string, error) {
	messages, err := e.prompt.Extract().Call(map[string]any{"query": query})
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Chat(types.WithUsage(ctx, types.UsageEntities), messages)
	if err != nil {
		return nil, fmt.Errorf("entity extraction failed: %w", err)
	}
	return ParseEntities(resp.Content), nil
}

// ParseEntities splits a comma separated list. Full-width commas, enumeration
// commas and newlines are accepted too; blanks and repeats are dropped.
func ParseEntities(s string) []string {
	s = strings.NewReplacer("，", ",", "、", ",", "\n", ",").Replace(s)
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'.。`)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
