package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

// Fixed answers that never reach the generation backend.
const (
	NoEvidenceAnswer = "I could not find any relevant information in the knowledge base, the knowledge graph or the web to answer this question."
	ApologyAnswer    = "Sorry, a system error occurred while generating the answer. Please try again later."
)

// AnswerPrompt defines the interface for answer generation prompts.
type AnswerPrompt interface {
	WithContext() PromptVersion
	Chitchat() PromptVersion
}

// AnswerVersions holds all versions of answer prompts.
type AnswerVersions struct {
	withContextPrompt PromptVersion
	chitchatPrompt    PromptVersion
}

func (a *AnswerVersions) WithContext() PromptVersion { return a.withContextPrompt }
func (a *AnswerVersions) Chitchat() PromptVersion    { return a.chitchatPrompt }

// FormatEvidence renders evidence as numbered blocks labelled with their backend.
func FormatEvidence(evidence []types.Evidence) string {
	if len(evidence) == 0 {
		return "No retrieved evidence."
	}
	blocks := make([]string, 0, len(evidence))
	for i, e := range evidence {
		blocks = append(blocks, fmt.Sprintf("--- Evidence %d [%s] ---\n%s", i+1, e.Kind, e.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// withContextPrompt answers from retrieved evidence.
func withContextPrompt(context map[string]any) ([]types.Message, error) {
	query, err := stringValue(context, "query")
	if err != nil {
		return nil, err
	}
	evidence, _ := context["evidence"].([]types.Evidence)

	sysPrompt := fmt.Sprintf(`You are a rigorous mineralogy and geology expert assistant. Answer the user's question using the retrieved context below.

### Source priority
1. [graph] knowledge graph: most authoritative. Prefer it for classification, associations and crystal systems.
2. [vector] local documents: reliable. Prefer it for descriptions, property definitions and experimental data.
3. [web] internet: supplementary. Use it for recent figures, news and concepts missing from the local sources.

### Requirements
- Answer strictly from the context and never fabricate facts. If the context does not contain the answer, say that the knowledge base cannot answer it.
- Use Markdown and answer point by point.
- Cite the evidence category after key claims, for example "(graph)" or "(vector)".
- Merge the sources into one coherent answer instead of listing them separately.
- Keep the tone academic, objective and concise.

### Retrieved context
%s`, FormatEvidence(evidence))

	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(query),
	}, nil
}

// chitchatPrompt answers conversational questions without retrieval.
func chitchatPrompt(context map[string]any) ([]types.Message, error) {
	query, err := stringValue(context, "query")
	if err != nil {
		return nil, err
	}

	sysPrompt := `You are a friendly and knowledgeable mineralogy assistant.
This question does not need any document lookup: answer naturally from your own knowledge.
If the user is greeting you, greet them back and briefly introduce yourself as the MultiRAG assistant.`

	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(query),
	}, nil
}

// NewAnswerVersions creates a new AnswerVersions instance.
func NewAnswerVersions() *AnswerVersions {
	return &AnswerVersions{
		withContextPrompt: NewPromptVersion(withContextPrompt),
		chitchatPrompt:    NewPromptVersion(chitchatPrompt),
	}
}
