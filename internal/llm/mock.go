package llm

import (
	"context"
	"fmt"
	"sync"

	"otto/internal/agent/ports"
)

// MockClient implements the LLM port for tests and offline development.
// Responses are consumed in order; when the script runs out, it keeps
// returning a terminal no-tool-calls response so loops converge.
type MockClient struct {
	mu        sync.Mutex
	model     string
	responses []ports.CompletionResponse
	calls     []ports.CompletionRequest

	// CompleteFunc, when set, overrides the scripted behaviour entirely.
	CompleteFunc func(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error)
}

// NewMockClient builds a scripted client.
func NewMockClient(model string, responses ...ports.CompletionResponse) *MockClient {
	return &MockClient{model: model, responses: responses}
}

func (m *MockClient) Model() string {
	if m.model == "" {
		return "mock"
	}
	return m.model
}

// Requests returns every request the client has seen, for assertions.
func (m *MockClient) Requests() []ports.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if len(m.responses) == 0 {
		return &ports.CompletionResponse{
			Content:    fmt.Sprintf("Mock response from %s.", m.Model()),
			StopReason: "stop",
			Usage:      ports.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	if resp.StopReason == "" {
		if len(resp.ToolCalls) > 0 {
			resp.StopReason = "tool_use"
		} else {
			resp.StopReason = "stop"
		}
	}
	return &resp, nil
}
