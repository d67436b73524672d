package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/agent/ports"
)

func TestMockClientScriptedThenFallback(t *testing.T) {
	client := NewMockClient("test-model",
		ports.CompletionResponse{ToolCalls: []ports.ToolCall{{ID: "call-1", Name: "readFile"}}},
		ports.CompletionResponse{Content: "done"},
	)

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)

	resp, err = client.Complete(context.Background(), ports.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, "done", resp.Content)

	// Script exhausted: subsequent calls stay terminal.
	resp, err = client.Complete(context.Background(), ports.CompletionRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "stop", resp.StopReason)

	assert.Equal(t, "test-model", client.Model())
	assert.Len(t, client.Requests(), 3)
}

func TestMockClientCompleteFuncOverride(t *testing.T) {
	client := NewMockClient("test-model", ports.CompletionResponse{Content: "scripted"})
	client.CompleteFunc = func(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		return nil, fmt.Errorf("boom")
	}

	_, err := client.Complete(context.Background(), ports.CompletionRequest{})
	assert.ErrorContains(t, err, "boom")
}

func TestMockClientHonorsContext(t *testing.T) {
	client := NewMockClient("test-model")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, ports.CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureStreamingPassThrough(t *testing.T) {
	assert.Nil(t, EnsureStreaming(nil))

	base := NewMockClient("test-model")
	adapted := EnsureStreaming(base)
	require.NotNil(t, adapted)
	assert.Equal(t, "test-model", adapted.Model())

	// Already-streaming clients come back unwrapped.
	assert.Same(t, adapted, EnsureStreaming(adapted))
}

func TestStreamingAdapterSynthesizesCallbacks(t *testing.T) {
	base := NewMockClient("test-model", ports.CompletionResponse{
		Content:   "answer",
		Reasoning: "thinking",
		ToolCalls: []ports.ToolCall{{ID: "call-1", Name: "searchText"}},
	})
	adapted := EnsureStreaming(base)

	var texts, reasonings, started, ended []string
	var done *ports.CompletionResponse
	resp, err := adapted.StreamComplete(context.Background(), ports.CompletionRequest{}, ports.CompletionStreamCallbacks{
		OnText:          func(delta string) { texts = append(texts, delta) },
		OnReasoning:     func(delta string) { reasonings = append(reasonings, delta) },
		OnToolCallStart: func(callID, name string) { started = append(started, callID+":"+name) },
		OnToolCallEnd:   func(callID string) { ended = append(ended, callID) },
		OnDone:          func(r *ports.CompletionResponse) { done = r },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"answer"}, texts)
	assert.Equal(t, []string{"thinking"}, reasonings)
	assert.Equal(t, []string{"call-1:searchText"}, started)
	assert.Equal(t, []string{"call-1"}, ended)
	assert.Same(t, resp, done)
}

func TestStreamingAdapterPropagatesErrors(t *testing.T) {
	base := NewMockClient("test-model")
	base.CompleteFunc = func(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		return nil, fmt.Errorf("upstream unavailable")
	}

	called := false
	_, err := EnsureStreaming(base).StreamComplete(context.Background(), ports.CompletionRequest{}, ports.CompletionStreamCallbacks{
		OnDone: func(*ports.CompletionResponse) { called = true },
	})
	assert.ErrorContains(t, err, "upstream unavailable")
	assert.False(t, called)
}
