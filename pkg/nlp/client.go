package nlp

import (
	"context"

	"github.com/soundprediction/multirag/pkg/types"
)

// Client defines the interface for language model operations.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// ChatJSON sends a chat completion request that must answer with a JSON object.
	ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error)

	// Close cleans up any resources.
	Close() error
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
)

// NewMessage creates a new message with the specified role and content.
func NewMessage(role types.Role, content string) types.Message {
	return types.Message{
		Role:    role,
		Content: content,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return NewMessage(RoleUser, content)
}

// Prompt builds the usual system plus user message pair. An empty system
// prompt is omitted.
func Prompt(system, user string) []types.Message {
	if system == "" {
		return []types.Message{NewUserMessage(user)}
	}
	return []types.Message{NewSystemMessage(system), NewUserMessage(user)}
}

// Complete runs a single chat turn tagged with usage and returns the content.
func Complete(ctx context.Context, c Client, usage, system, user string) (string, error) {
	resp, err := c.Chat(types.WithUsage(ctx, usage), Prompt(system, user))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteJSON is Complete in JSON mode.
func CompleteJSON(ctx context.Context, c Client, usage, system, user string) (string, error) {
	resp, err := c.ChatJSON(types.WithUsage(ctx, usage), Prompt(system, user))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
