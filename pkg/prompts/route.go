package prompts

import (
	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

// RoutePrompt defines the interface for intent routing prompts.
type RoutePrompt interface {
	Classify() PromptVersion
}

// RouteVersions holds all versions of routing prompts.
type RouteVersions struct {
	classifyPrompt PromptVersion
}

func (r *RouteVersions) Classify() PromptVersion { return r.classifyPrompt }

// classifyPrompt asks for the set of datasources that should answer a question.
func classifyPrompt(context map[string]any) ([]types.Message, error) {
	query, err := stringValue(context, "query")
	if err != nil {
		return nil, err
	}

	sysPrompt := `You are a semantic router for a mineralogy question answering assistant.
Your job is to send the user's question to the most suitable datasources.

Available datasources:
1. "vector": local documents. Definitions, chemical composition, physical properties, experimental data, mining and processing techniques.
2. "graph": knowledge graph. Relations between entities, associated minerals, classification, hierarchy.
3. "web": the internet. Market prices, industry news, production rankings, anything recent or time sensitive.
4. "generate": no retrieval. Greetings, thanks, general knowledge or unrelated questions.

Guidelines:
- Factual questions should use "vector" or "graph".
- Questions about recent events ("latest", "this year", "now") must include "web".
- When unsure, choose several datasources.
- Choose "generate" only on its own.

Respond with a JSON object of the form {"datasources": ["vector", "graph"]}.`

	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(query),
	}, nil
}

// NewRouteVersions creates a new RouteVersions instance.
func NewRouteVersions() *RouteVersions {
	return &RouteVersions{
		classifyPrompt: NewPromptVersion(classifyPrompt),
	}
}
