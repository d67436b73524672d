// Package llm provides the LLM-port plumbing the engine ships with: a
// streaming fallback adapter and a scriptable mock client. Concrete wire
// clients are external collaborators and live outside the core.
package llm

import (
	"context"

	"otto/internal/agent/ports"
)

// streamingAdapter wraps an LLMClient that lacks native streaming support
// and synthesizes the stream callbacks by invoking Complete.
type streamingAdapter struct {
	base ports.LLMClient
}

var _ ports.StreamingLLMClient = (*streamingAdapter)(nil)

// EnsureStreaming guarantees the returned client implements
// StreamingLLMClient by wrapping non-streaming implementations with a
// fallback adapter.
func EnsureStreaming(client ports.LLMClient) ports.StreamingLLMClient {
	if client == nil {
		return nil
	}
	if streaming, ok := client.(ports.StreamingLLMClient); ok {
		return streaming
	}
	return &streamingAdapter{base: client}
}

func (a *streamingAdapter) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	return a.base.Complete(ctx, req)
}

func (a *streamingAdapter) Model() string {
	return a.base.Model()
}

func (a *streamingAdapter) StreamComplete(ctx context.Context, req ports.CompletionRequest, callbacks ports.CompletionStreamCallbacks) (*ports.CompletionResponse, error) {
	resp, err := a.base.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp != nil {
		if callbacks.OnReasoning != nil && resp.Reasoning != "" {
			callbacks.OnReasoning(resp.Reasoning)
		}
		if callbacks.OnText != nil && resp.Content != "" {
			callbacks.OnText(resp.Content)
		}
		for _, call := range resp.ToolCalls {
			if callbacks.OnToolCallStart != nil {
				callbacks.OnToolCallStart(call.ID, call.Name)
			}
			if callbacks.OnToolCallEnd != nil {
				callbacks.OnToolCallEnd(call.ID)
			}
		}
		if callbacks.OnDone != nil {
			callbacks.OnDone(resp)
		}
	}
	return resp, nil
}
