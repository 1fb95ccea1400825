package dto

import (
	"errors"
	"strings"

	"github.com/soundprediction/multirag/pkg/types"
)

// MaxTopK is the largest top_k a request may ask for.
const MaxTopK = 10

var (
	ErrQueryRequired = errors.New("query is required")
	ErrTopKRange     = errors.New("top_k must be between 1 and 10")
)

// ChatRequest is the body of POST /v1/chat. Omitted flags take their
// defaults: vector and graph on, web off.
type ChatRequest struct {
	Query        string `json:"query" binding:"required"`
	TopK         int    `json:"top_k,omitempty"`
	EnableVector *bool  `json:"enable_vector,omitempty"`
	EnableGraph  *bool  `json:"enable_graph,omitempty"`
	EnableWeb    *bool  `json:"enable_web,omitempty"`
}

// Validate checks the request before it reaches the engine.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrQueryRequired
	}
	if err := types.ValidateQuery(r.Query); err != nil {
		return err
	}
	if r.TopK < 0 || r.TopK > MaxTopK {
		return ErrTopKRange
	}
	return nil
}

// Options converts the request into engine options.
func (r *ChatRequest) Options(requestID string) types.AnswerOptions {
	opts := types.DefaultAnswerOptions()
	if r.TopK > 0 {
		opts.TopK = r.TopK
	}
	if r.EnableVector != nil {
		opts.EnableVector = *r.EnableVector
	}
	if r.EnableGraph != nil {
		opts.EnableGraph = *r.EnableGraph
	}
	if r.EnableWeb != nil {
		opts.EnableWeb = *r.EnableWeb
	}
	opts.RequestID = requestID
	return opts
}

// Source is one evidence item in a chat response.
type Source struct {
	SourceType string         `json:"source_type"`
	Content    string         `json:"content"`
	Score      *float64       `json:"score,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

// ChatResponse is the body returned by POST /v1/chat.
type ChatResponse struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	Latency        float64  `json:"latency"` // seconds
	ReasoningTrace []string `json:"reasoning_trace"`
	RequestID      string   `json:"request_id"`
	Path           string   `json:"path"`
}

// NewChatResponse renders an engine result.
func NewChatResponse(result *types.AnswerResult) ChatResponse {
	sources := make([]Source, len(result.Evidence))
	for i, e := range result.Evidence {
		metadata := e.Provenance
		if metadata == nil {
			metadata = map[string]any{}
		}
		sources[i] = Source{
			SourceType: string(e.Kind),
			Content:    e.Text,
			Score:      e.Score,
			Metadata:   metadata,
		}
	}
	trace := result.Trace
	if trace == nil {
		trace = []string{}
	}
	return ChatResponse{
		Answer:         result.Answer,
		Sources:        sources,
		Latency:        float64(result.Latency.Milliseconds()) / 1000,
		ReasoningTrace: trace,
		RequestID:      result.RequestID,
		Path:           string(result.Path),
	}
}
