package ports

import "context"

// SubtaskSpec describes one child task to fork.
type SubtaskSpec struct {
	Title    string `json:"title"`
	Intent   string `json:"intent,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// SubtaskOutcome is one child's final state after the join.
type SubtaskOutcome struct {
	TaskID  string `json:"task_id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
}

// SubtaskResult aggregates a fork-join round.
type SubtaskResult struct {
	Success  int              `json:"success"`
	Error    int              `json:"error"`
	Cancel   int              `json:"cancel"`
	Outcomes []SubtaskOutcome `json:"outcomes"`
}

// SubtaskCoordinator lets the subtask tools fork and inspect child tasks
// without importing the runtime. CreateSubtasks blocks until every child
// reaches a terminal status (fork-join).
type SubtaskCoordinator interface {
	CreateSubtasks(ctx context.Context, parentTaskID string, specs []SubtaskSpec) (*SubtaskResult, error)
	ListSubtasks(ctx context.Context, parentTaskID string) ([]SubtaskOutcome, error)
}
