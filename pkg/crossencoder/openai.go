package crossencoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/soundprediction/multirag/pkg/utils"
)

// OpenAIRerankerClient asks an LLM whether each passage is relevant to the
// query and maps the boolean answer to a score.
type OpenAIRerankerClient struct {
	client nlp.Client
	config Config
}

// NewOpenAIRerankerClient creates a new LLM-based reranker client
func NewOpenAIRerankerClient(llmClient nlp.Client, config Config) *OpenAIRerankerClient {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}

	return &OpenAIRerankerClient{
		client: llmClient,
		config: config,
	}
}

// Score judges every passage concurrently.
func (c *OpenAIRerankerClient) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	scores, errs := utils.MapConcurrent(ctx, c.config.MaxConcurrency, passages, func(ctx context.Context, p string) (float64, error) {
		return c.scorePassage(ctx, query, p)
	})
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("error scoring passage %d: %w", i, err)
		}
	}
	return scores, nil
}

func (c *OpenAIRerankerClient) scorePassage(ctx context.Context, query, passage string) (float64, error) {
	content, err := nlp.Complete(ctx, c.client, types.UsageRerank,
		"You are an expert tasked with determining whether the passage is relevant to the query",
		fmt.Sprintf(`Respond with "True" if PASSAGE is relevant to QUERY and "False" otherwise.
<PASSAGE>
%s
</PASSAGE>
<QUERY>
%s
</QUERY>`, passage, query))
	if err != nil {
		return 0, fmt.Errorf("failed to get response: %w", err)
	}
	return booleanScore(content), nil
}

// booleanScore maps the first word of a judgment to a score.
func booleanScore(content string) float64 {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return 0.5
	}
	switch strings.ToLower(strings.Trim(fields[0], `".,!`)) {
	case "true", "yes":
		return 0.8
	case "false", "no":
		return 0.2
	default:
		return 0.5
	}
}

// Close cleans up any resources used by the client
func (c *OpenAIRerankerClient) Close() error {
	return nil
}
