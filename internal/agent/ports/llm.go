package ports

import (
	"context"
	"time"
)

// LLMClient represents any LLM provider
type LLMClient interface {
	// Complete sends messages and returns a response (non-streaming)
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Model returns the model identifier
	Model() string
}

// StreamingLLMClient extends LLMClient with incremental delivery. The
// streamed chunks always resolve to the same aggregate CompletionResponse
// that a plain Complete call would have returned.
type StreamingLLMClient interface {
	LLMClient

	StreamComplete(ctx context.Context, req CompletionRequest, callbacks CompletionStreamCallbacks) (*CompletionResponse, error)
}

// CompletionRequest contains all parameters for LLM completion
type CompletionRequest struct {
	Profile     string           `json:"profile,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// CompletionResponse is the LLM's response
type CompletionResponse struct {
	Content    string     `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      TokenUsage `json:"usage"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionStreamCallbacks receives incremental chunks during a streaming
// completion. Any callback may be nil.
type CompletionStreamCallbacks struct {
	OnText          func(delta string)
	OnReasoning     func(delta string)
	OnToolCallStart func(callID, name string)
	OnToolCallDelta func(callID, argsDelta string)
	OnToolCallEnd   func(callID string)
	OnDone          func(resp *CompletionResponse)
}

// Message is one conversation turn. The same shape is used on the LLM wire
// and in the persisted per-task history; CreatedAt is only meaningful for
// persisted turns.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Source     string     `json:"source,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// Message sources. Instruction turns are counted to decide which queued
// task instructions still need injecting on the next drive.
const (
	MessageSourceSystemPrompt = "system_prompt"
	MessageSourceUserInput    = "user_input"
	MessageSourceInstruction  = "instruction"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// PendingToolCalls returns the tool calls of the last assistant turn that do
// not yet have a matching tool-result turn. A conversation is resumable only
// once this is empty.
func PendingToolCalls(history []Message) []ToolCall {
	lastAssistant := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant {
			lastAssistant = i
			break
		}
	}
	if lastAssistant < 0 || len(history[lastAssistant].ToolCalls) == 0 {
		return nil
	}

	resolved := make(map[string]bool)
	for _, msg := range history[lastAssistant+1:] {
		if msg.Role == RoleTool && msg.ToolCallID != "" {
			resolved[msg.ToolCallID] = true
		}
	}

	var pending []ToolCall
	for _, call := range history[lastAssistant].ToolCalls {
		if !resolved[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}
