package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

// PromptFunction renders messages from a template context.
type PromptFunction func(context map[string]any) ([]types.Message, error)

// PromptVersion is a callable prompt template.
type PromptVersion interface {
	Call(context map[string]any) ([]types.Message, error)
}

// RouteResponse is the structured output of the intent router.
type RouteResponse struct {
	Datasources []string `json:"datasources"`
}

// DecomposeResponse is the structured output of the query decomposer.
type DecomposeResponse struct {
	SubQueries []string `json:"sub_queries"`
}

// promptVersionImpl implements PromptVersion.
type promptVersionImpl struct {
	fn PromptFunction
}

// Call executes the prompt function with the given context.
func (p *promptVersionImpl) Call(context map[string]any) ([]types.Message, error) {
	messages, err := p.fn(context)
	if err != nil {
		return nil, err
	}

	// Models tend to escape CJK mineral names otherwise.
	for i, msg := range messages {
		if msg.Role == nlp.RoleSystem {
			messages[i].Content += "\nDo not escape unicode characters.\n"
		}
	}

	logPrompts(messages)
	return messages, nil
}

// NewPromptVersion creates a new PromptVersion from a function.
func NewPromptVersion(fn PromptFunction) PromptVersion {
	return &promptVersionImpl{fn: fn}
}

// stringValue reads a required string from the template context.
func stringValue(context map[string]any, key string) (string, error) {
	v, ok := context[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("prompt context is missing %q", key)
	}
	return v, nil
}

// SystemAndUser splits rendered messages into the system and user prompts.
func SystemAndUser(messages []types.Message) (system, user string) {
	for _, m := range messages {
		switch m.Role {
		case nlp.RoleSystem:
			system = m.Content
		case nlp.RoleUser:
			user = m.Content
		}
	}
	return system, user
}

// logPrompts prints rendered prompts at debug level when DEBUG_LLM_PROMPTS=true.
func logPrompts(messages []types.Message) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}
	for _, m := range messages {
		slog.Debug("Generated prompt", "role", m.Role, "content", m.Content)
	}
}

// LogResponse prints a model response at debug level when DEBUG_LLM_PROMPTS=true.
func LogResponse(logger *slog.Logger, response *types.Response) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" || response == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("LLM response", "model", response.Model, "content", response.Content)
}
