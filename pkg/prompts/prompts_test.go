package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

func TestFormatEvidence(t *testing.T) {
	out := FormatEvidence([]types.Evidence{
		{Kind: types.BackendGraph, Text: "Graph Knowledge:\ngypsum -[USED_IN]-> plaster"},
		{Kind: types.BackendVector, Text: "Gypsum is a soft sulfate mineral."},
	})

	assert.Contains(t, out, "--- Evidence 1 [graph] ---\nGraph Knowledge:")
	assert.Contains(t, out, "--- Evidence 2 [vector] ---\nGypsum is a soft sulfate mineral.")
	assert.Equal(t, "No retrieved evidence.", FormatEvidence(nil))
}

func TestLibraryPrompts(t *testing.T) {
	lib := NewLibrary()

	tests := []struct {
		name    string
		prompt  PromptVersion
		context map[string]any
		want    string
	}{
		{"route", lib.Route().Classify(), map[string]any{"query": "gypsum price 2025"}, `"datasources"`},
		{"decompose", lib.Decompose().Split(), map[string]any{"query": "a and b", "max_sub_queries": 2}, "at most 2"},
		{"entities", lib.Entities().Extract(), map[string]any{"query": "What is gypsum?"}, "separated by commas"},
		{"chitchat", lib.Answer().Chitchat(), map[string]any{"query": "Hello"}, "MultiRAG assistant"},
		{"answer", lib.Answer().WithContext(), map[string]any{
			"query":    "What is gypsum used for?",
			"evidence": []types.Evidence{{Kind: types.BackendVector, Text: "plaster"}},
		}, "--- Evidence 1 [vector] ---"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := tt.prompt.Call(tt.context)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, nlp.RoleSystem, msgs[0].Role)
			assert.Contains(t, msgs[0].Content, tt.want)
			assert.Contains(t, msgs[0].Content, "Do not escape unicode characters.")

			system, user := SystemAndUser(msgs)
			assert.Equal(t, msgs[0].Content, system)
			assert.Equal(t, msgs[1].Content, user)
		})
	}
}

func TestPromptRequiresQuery(t *testing.T) {
	_, err := NewLibrary().Route().Classify().Call(map[string]any{"query": "  "})
	assert.Error(t, err)
}
