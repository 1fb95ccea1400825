package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Sure! {"a":1} Hope this helps.`, `{"a":1}`},
		{"think", "<think>vector? graph?</think>{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestDecodeJSONRepairs(t *testing.T) {
	var out struct {
		Datasources []string `json:"datasources"`
	}
	require.NoError(t, DecodeJSON(`{'datasources': ['vector', 'graph',]}`, &out))
	assert.Equal(t, []string{"vector", "graph"}, out.Datasources)
}

func TestDecodeJSONEmpty(t *testing.T) {
	var out map[string]any
	assert.ErrorIs(t, DecodeJSON("   ", &out), ErrEmptyResponse)
}
