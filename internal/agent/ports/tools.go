package ports

import "context"

// RiskLevel classifies whether a tool may alter durable state. Risky tools
// are gated behind a user confirmation before their body runs.
type RiskLevel string

const (
	RiskSafe  RiskLevel = "safe"
	RiskRisky RiskLevel = "risky"
)

// ToolGroup is a capability group an agent must declare to see a tool.
// Group-less tools are visible to every agent.
type ToolGroup string

const (
	GroupNone    ToolGroup = ""
	GroupSearch  ToolGroup = "search"
	GroupEdit    ToolGroup = "edit"
	GroupExec    ToolGroup = "exec"
	GroupSubtask ToolGroup = "subtask"
)

// ToolExecutor executes a single tool call
type ToolExecutor interface {
	// Execute runs the tool with given arguments
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// Definition returns the tool's schema for LLM
	Definition() ToolDefinition

	// Metadata returns tool metadata
	Metadata() ToolMetadata
}

// Guard is optionally implemented by tools that can reject a call before
// any side effect happens. A CanExecute failure becomes an error tool
// result without the body ever running.
type Guard interface {
	CanExecute(ctx context.Context, call ToolCall) error
}

// Previewer is optionally implemented by risky tools that can render a
// human-readable preview (e.g. a diff) for the confirmation display.
type Previewer interface {
	Preview(ctx context.Context, call ToolCall) (string, error)
}

// ToolRegistry manages available tools
type ToolRegistry interface {
	// Register adds a tool to the registry, rejecting duplicate names
	Register(tool ToolExecutor) error

	// Get retrieves a tool by name
	Get(name string) (ToolExecutor, error)

	// Definitions returns the definitions of tools whose group is in the
	// allowed set. Group-less tools are always included.
	Definitions(groups []ToolGroup) []ToolDefinition
}

// ToolCall represents a request to execute a tool. Wire clients that only
// see the provider's raw argument string may leave Arguments nil and set
// RawArguments; the agent loop repairs and decodes it before dispatch.
type ToolCall struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments"`
	RawArguments string         `json:"raw_arguments,omitempty"`
	TaskID       string         `json:"task_id,omitempty"`
	ParentTaskID string         `json:"parent_task_id,omitempty"`
}

// ToolResult is the execution result. All tool failures are structured
// results the agent loop can react to, never raised errors.
type ToolResult struct {
	CallID     string `json:"call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ToolDefinition describes a tool for the LLM
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolMetadata contains static tool information
type ToolMetadata struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Risk    RiskLevel `json:"risk"`
	Group   ToolGroup `json:"group"`
	Tags    []string  `json:"tags,omitempty"`
}

// ParameterSchema defines tool parameters (JSON Schema format)
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Enum        []any               `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}
