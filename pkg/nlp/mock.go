package nlp

import (
	"context"
	"sync"

	"github.com/soundprediction/multirag/pkg/types"
)

// MockCall records one request seen by MockClient.
type MockCall struct {
	Usage    string
	JSON     bool
	Messages []types.Message
}

// MockClient is a scripted Client for tests and offline runs. Responses are
// looked up by usage tag; Handler, when set, takes precedence.
type MockClient struct {
	Responses map[string]string
	Errors    map[string]error
	Handler   func(ctx context.Context, usage string, messages []types.Message) (string, error)

	mu    sync.Mutex
	calls []MockCall
}

// NewMockClient creates a mock answering each usage with a fixed reply.
func NewMockClient(responses map[string]string) *MockClient {
	return &MockClient{Responses: responses, Errors: map[string]error{}}
}

func (m *MockClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return m.respond(ctx, messages, false)
}

func (m *MockClient) ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return m.respond(ctx, messages, true)
}

func (m *MockClient) Close() error { return nil }

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallsFor returns how many requests carried usage.
func (m *MockClient) CallsFor(usage string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Usage == usage {
			n++
		}
	}
	return n
}

func (m *MockClient) respond(ctx context.Context, messages []types.Message, json bool) (*types.Response, error) {
	usage := types.UsageFromContext(ctx)
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Usage: usage, JSON: json, Messages: messages})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Handler != nil {
		content, err := m.Handler(ctx, usage, messages)
		if err != nil {
			return nil, err
		}
		return &types.Response{Content: content, Model: "mock"}, nil
	}
	if err, ok := m.Errors[usage]; ok && err != nil {
		return nil, err
	}
	return &types.Response{Content: m.Responses[usage], Model: "mock"}, nil
}
