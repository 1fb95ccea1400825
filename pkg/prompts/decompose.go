package prompts

import (
	"fmt"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

// DecomposePrompt defines the interface for query decomposition prompts.
type DecomposePrompt interface {
	Split() PromptVersion
}

// DecomposeVersions holds all versions of decomposition prompts.
type DecomposeVersions struct {
	splitPrompt PromptVersion
}

func (d *DecomposeVersions) Split() PromptVersion { return d.splitPrompt }

// splitPrompt breaks a compound question into independent sub-questions.
func splitPrompt(context map[string]any) ([]types.Message, error) {
	query, err := stringValue(context, "query")
	if err != nil {
		return nil, err
	}
	maxSubQueries, ok := context["max_sub_queries"].(int)
	if !ok || maxSubQueries <= 0 {
		maxSubQueries = 3
	}

	sysPrompt := fmt.Sprintf(`You split compound questions into simpler, self-contained sub-questions.
Each sub-question must be answerable on its own and keep the named entities of the original.
Return at most %d sub-questions. If the question is already simple, return it unchanged as the only item.

Respond with a JSON object of the form {"sub_queries": ["..."]}.`, maxSubQueries)

	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(query),
	}, nil
}

// NewDecomposeVersions creates a new DecomposeVersions instance.
func NewDecomposeVersions() *DecomposeVersions {
	return &DecomposeVersions{
		splitPrompt: NewPromptVersion(splitPrompt),
	}
}
