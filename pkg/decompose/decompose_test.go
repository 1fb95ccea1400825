package decompose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

func TestLLMDecomposer(t *testing.T) {
	const query = "What is gypsum used for and how is anhydrite formed?"

	tests := []struct {
		name  string
		reply string
		err   error
		want  []string
	}{
		{
			name:  "split",
			reply: `{"sub_queries": ["What is gypsum used for?", " How is anhydrite formed? "]}`,
			want:  []string{"What is gypsum used for?", "How is anhydrite formed?"},
		},
		{
			name:  "capped and deduplicated",
			reply: `{"sub_queries": ["a", "a", "", "b", "c", "d"]}`,
			want:  []string{"a", "b", "c"},
		},
		{name: "empty list", reply: `{"sub_queries": []}`, want: []string{query}},
		{name: "blank only", reply: `{"sub_queries": ["  "]}`, want: []string{query}},
		{name: "undecodable", reply: `no idea`, want: []string{query}},
		{name: "model error", err: errors.New("rate limited"), want: []string{query}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := nlp.NewMockClient(map[string]string{types.UsageDecompose: tt.reply})
			if tt.err != nil {
				mock.Errors[types.UsageDecompose] = tt.err
			}

			got := NewLLMDecomposer(mock, 0, nil).Decompose(context.Background(), query)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, mock.CallsFor(types.UsageDecompose))
		})
	}
}

func TestPassthrough(t *testing.T) {
	assert.Equal(t, []string{"q"}, Passthrough{}.Decompose(context.Background(), "q"))
}

func TestClean(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Clean([]string{" x", "y", "x "}, 0))
	assert.Nil(t, Clean(nil, 3))
}
