// Package generation produces the final answer from the aggregate state of a
// request.
//
// Synthesize picks exactly one terminal path, in priority order: direct
// conversation, the fixed no-evidence answer, or an evidence-grounded answer.
// A failing generation backend yields an apology, never an error.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/prompts"
	"github.com/soundprediction/multirag/pkg/types"
)

// Generator completes a system and user prompt pair into plain text.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMGenerator implements Generator on an nlp.Client. The usage tag is taken
// from the context.
type LLMGenerator struct {
	client nlp.Client
}

// NewLLMGenerator creates a generator.
func NewLLMGenerator(client nlp.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Complete implements Generator.
func (g *LLMGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := g.client.Chat(ctx, nlp.Prompt(systemPrompt, userPrompt))
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(nlp.RemoveThinkTags(resp.Content))
	if content == "" {
		return "", nlp.ErrEmptyResponse
	}
	return content, nil
}

// Input is the part of the aggregate state the synthesizer reads.
type Input struct {
	Query    string
	Direct   bool
	Evidence []types.Evidence
	// NoBackends marks a request for which no backend was queried.
	NoBackends bool
}

// Result is a synthesized answer.
type Result struct {
	Answer string
	Path   types.SynthesisPath
	// Err is the generation failure behind an apology, for tracing only.
	Err error
}

// Synthesizer selects the terminal path and runs generation.
type Synthesizer struct {
	generator Generator
	prompts   prompts.AnswerPrompt
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(generator Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		generator: generator,
		prompts:   prompts.NewAnswerVersions(),
		logger:    logger,
	}
}

// Synthesize produces the answer for in.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Result {
	switch {
	case in.Direct:
		return s.generate(ctx, types.UsageChitchat, types.PathDirect, s.prompts.Chitchat(), map[string]any{
			"query": in.Query,
		})
	case len(in.Evidence) == 0:
		path := types.PathNoEvidence
		if in.NoBackends {
			path = types.PathNoBackends
		}
		return Result{Answer: prompts.NoEvidenceAnswer, Path: path}
	default:
		return s.generate(ctx, types.UsageAnswer, types.PathContext, s.prompts.WithContext(), map[string]any{
			"query":    in.Query,
			"evidence": in.Evidence,
		})
	}
}

func (s *Synthesizer) generate(ctx context.Context, usage string, path types.SynthesisPath, prompt prompts.PromptVersion, data map[string]any) Result {
	answer, err := s.complete(types.WithUsage(ctx, usage), prompt, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "Answer generation failed",
			"request_id", types.RequestIDFromContext(ctx),
			"usage", usage,
			"error", err)
		return Result{Answer: prompts.ApologyAnswer, Path: types.PathApology, Err: err}
	}
	return Result{Answer: answer, Path: path}
}

func (s *Synthesizer) complete(ctx context.Context, prompt prompts.PromptVersion, data map[string]any) (string, error) {
	messages, err := prompt.Call(data)
	if err != nil {
		return "", err
	}
	system, user := prompts.SystemAndUser(messages)
	if s.generator == nil {
		return "", fmt.Errorf("no generation backend configured")
	}
	return s.generator.Complete(ctx, system, user)
}
