package nlp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags drops <think>...</think> blocks emitted by reasoning models.
func RemoveThinkTags(input string) string {
	return thinkTags.ReplaceAllString(input, "")
}

// ExtractJSON pulls a JSON object out of a model response, removing code
// fences and surrounding prose.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(RemoveThinkTags(response))

	if start := strings.Index(response, "```json"); start != -1 {
		rest := response[start+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		return response[start : end+1]
	}
	return response
}

// DecodeJSON decodes a model response into v, repairing malformed JSON
// (trailing commas, single quotes, truncated objects) when needed.
func DecodeJSON(response string, v any) error {
	raw := ExtractJSON(response)
	if raw == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return fmt.Errorf("unrepairable JSON in model response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	return nil
}
