package prompts

import (
	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

// EntitiesPrompt defines the interface for entity extraction prompts.
type EntitiesPrompt interface {
	Extract() PromptVersion
}

// EntitiesVersions holds all versions of entity extraction prompts.
type EntitiesVersions struct {
	extractPrompt PromptVersion
}

func (e *EntitiesVersions) Extract() PromptVersion { return e.extractPrompt }

// extractEntitiesPrompt lists the key entities of a question, comma separated.
func extractEntitiesPrompt(context map[string]any) ([]types.Message, error) {
	query, err := stringValue(context, "query")
	if err != nil {
		return nil, err
	}

	sysPrompt := `You extract the key entities from a question so they can be looked up in a knowledge graph.
Entities are mineral names, rock names, elements, properties and places.
Return only the entities, separated by commas, without numbering or explanation.
If there are none, return an empty line.`

	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage("Question: " + query),
	}, nil
}

// NewEntitiesVersions creates a new EntitiesVersions instance.
func NewEntitiesVersions() *EntitiesVersions {
	return &EntitiesVersions{
		extractPrompt: NewPromptVersion(extractEntitiesPrompt),
	}
}
