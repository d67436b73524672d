package ports

import "context"

// TaskView is the read-only slice of a task an agent is allowed to see.
// Agents are risk-unaware: nothing here exposes gating state.
type TaskView struct {
	TaskID       string
	Title        string
	Intent       string
	AgentID      string
	Priority     string
	ParentTaskID string
}

// TopLevel reports whether the task has no parent. Only top-level tasks are
// permitted group-management tooling.
func (t TaskView) TopLevel() bool {
	return t.ParentTaskID == ""
}

// OutputKind discriminates AgentOutput variants.
type OutputKind string

const (
	OutputText      OutputKind = "text"
	OutputReasoning OutputKind = "reasoning"
	OutputVerbose   OutputKind = "verbose"
	OutputError     OutputKind = "error"
	OutputToolCall  OutputKind = "tool_call"
	OutputDone      OutputKind = "done"
	OutputFailed    OutputKind = "failed"
)

// AgentOutput is one element of an agent's output sequence.
type AgentOutput struct {
	Kind    OutputKind
	Text    string
	Call    *ToolCall
	Summary string
	Reason  string
}

// SinkDirective tells the agent whether to keep draining after an output
// was consumed.
type SinkDirective int

const (
	// SinkContinue keeps the agent's output sequence draining.
	SinkContinue SinkDirective = iota
	// SinkStop suspends the sequence; the agent must return without
	// producing further outputs. Resumption is a runtime-level concept
	// rebuilt from persisted history, not an agent-level one.
	SinkStop
)

// OutputSink consumes an agent's output sequence in order. The sink owns
// risk gating and persistence; the agent simply pushes outputs into it.
type OutputSink interface {
	Consume(ctx context.Context, out AgentOutput) (SinkDirective, error)
}

// ConversationAccess is the message-persistence callback handed to an agent
// for one task's drive.
type ConversationAccess interface {
	History(ctx context.Context) ([]Message, error)
	Append(ctx context.Context, turns ...Message) error
	TokenCount(messages []Message) int
}

// ExecutionEnv bundles everything a running agent may touch. The tool list
// is already filtered by the agent's declared groups and the task's
// top-level status.
type ExecutionEnv struct {
	LLM           StreamingLLMClient
	Tools         []ToolDefinition
	Conversation  ConversationAccess
	Sink          OutputSink
	Profile       string
	MaxIterations int
	Instructions  []string
	Logger        Logger
	Clock         Clock
}

// Agent is a pluggable, risk-unaware policy producing a sequence of outputs
// from a task and its context. A run is restartable only by starting a
// fresh run.
type Agent interface {
	ID() string
	Groups() []ToolGroup
	Run(ctx context.Context, task TaskView, env ExecutionEnv) error
}
