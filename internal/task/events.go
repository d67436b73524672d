package task

import "otto/internal/agent/ports"

// Lifecycle event types appended to a task's stream.
const (
	EventTaskCreated              = "TaskCreated"
	EventTaskStarted              = "TaskStarted"
	EventTaskCompleted            = "TaskCompleted"
	EventTaskFailed               = "TaskFailed"
	EventTaskCanceled             = "TaskCanceled"
	EventTaskPaused               = "TaskPaused"
	EventTaskResumed              = "TaskResumed"
	EventTaskInstructionAdded     = "TaskInstructionAdded"
	EventUserInteractionRequested = "UserInteractionRequested"
	EventUserInteractionResponded = "UserInteractionResponded"
)

// TaskCreatedPayload establishes a task and, when ParentTaskID is set, its
// immutable edge in the subtask tree.
type TaskCreatedPayload struct {
	TaskID        string   `json:"task_id"`
	Title         string   `json:"title"`
	Intent        string   `json:"intent,omitempty"`
	AgentID       string   `json:"agent_id"`
	Priority      Priority `json:"priority"`
	ArtifactRefs  []string `json:"artifact_refs,omitempty"`
	ParentTaskID  string   `json:"parent_task_id,omitempty"`
	AuthorActorID string   `json:"author_actor_id,omitempty"`
}

type TaskStartedPayload struct {
	TaskID        string `json:"task_id"`
	AgentID       string `json:"agent_id"`
	AuthorActorID string `json:"author_actor_id,omitempty"`
}

type TaskCompletedPayload struct {
	TaskID  string `json:"task_id"`
	Summary string `json:"summary,omitempty"`
}

type TaskFailedPayload struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

type TaskCanceledPayload struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

type TaskPausedPayload struct {
	TaskID string `json:"task_id"`
}

type TaskResumedPayload struct {
	TaskID string `json:"task_id"`
}

type TaskInstructionAddedPayload struct {
	TaskID string `json:"task_id"`
	Text   string `json:"text"`
}

type UserInteractionRequestedPayload struct {
	InteractionID string              `json:"interaction_id"`
	TaskID        string              `json:"task_id"`
	Kind          InteractionKind     `json:"kind"`
	Purpose       string              `json:"purpose,omitempty"`
	Display       InteractionDisplay  `json:"display"`
	Options       []InteractionOption `json:"options,omitempty"`
	ToolCall      *ports.ToolCall     `json:"tool_call,omitempty"`
}

type UserInteractionRespondedPayload struct {
	InteractionID    string `json:"interaction_id"`
	TaskID           string `json:"task_id"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	InputValue       string `json:"input_value,omitempty"`
}
