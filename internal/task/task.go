// Package task holds the task entity, its state machine, the lifecycle
// event payloads, and the projection folded from the event log. A Task is
// mutated only by replaying events through the reducer, never by direct
// assignment.
package task

import (
	"time"

	"otto/internal/agent/ports"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusOpen         Status = "open"
	StatusInProgress   Status = "in_progress"
	StatusAwaitingUser Status = "awaiting_user"
	StatusPaused       Status = "paused"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
	StatusCanceled     Status = "canceled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusOpen:         {StatusInProgress, StatusCanceled},
	StatusInProgress:   {StatusAwaitingUser, StatusPaused, StatusDone, StatusFailed, StatusCanceled},
	StatusAwaitingUser: {StatusInProgress, StatusCanceled},
	StatusPaused:       {StatusInProgress, StatusCanceled},
}

// CanTransition reports whether the state machine permits moving to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority orders tasks for a front end; the engine itself treats all
// priorities the same.
type Priority string

const (
	PriorityForeground Priority = "foreground"
	PriorityNormal     Priority = "normal"
	PriorityBackground Priority = "background"
)

// NormalizePriority maps unknown or empty values to PriorityNormal.
func NormalizePriority(value string) Priority {
	switch Priority(value) {
	case PriorityForeground, PriorityBackground:
		return Priority(value)
	}
	return PriorityNormal
}

// Task is the materialized view of one task stream.
type Task struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	Intent       string    `json:"intent,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
	AgentID      string    `json:"agent_id"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	ArtifactRefs []string  `json:"artifact_refs,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ParentTaskID string    `json:"parent_task_id,omitempty"`
	Summary      string    `json:"summary,omitempty"`
}

// View returns the read-only slice of the task handed to agents.
func (t *Task) View() ports.TaskView {
	return ports.TaskView{
		TaskID:       t.TaskID,
		Title:        t.Title,
		Intent:       t.Intent,
		AgentID:      t.AgentID,
		Priority:     string(t.Priority),
		ParentTaskID: t.ParentTaskID,
	}
}

// InteractionKind discriminates pending interaction shapes.
type InteractionKind string

const (
	InteractionSelect  InteractionKind = "select"
	InteractionInput   InteractionKind = "input"
	InteractionConfirm InteractionKind = "confirm"
)

// InteractionOption is one selectable answer.
type InteractionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Style string `json:"style,omitempty"`
}

// InteractionDisplay is what a front end renders for an interaction.
type InteractionDisplay struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Confirmation option IDs used by the risk-gating protocol.
const (
	OptionAccept = "accept"
	OptionReject = "reject"
)

// PendingInteraction exists iff its task is awaiting_user; there is exactly
// one open interaction per task. The gated tool call rides along so the
// resume path can execute or reject it without re-asking the agent.
type PendingInteraction struct {
	InteractionID string              `json:"interaction_id"`
	TaskID        string              `json:"task_id"`
	Kind          InteractionKind     `json:"kind"`
	Purpose       string              `json:"purpose,omitempty"`
	Display       InteractionDisplay  `json:"display"`
	Options       []InteractionOption `json:"options,omitempty"`
	ToolCall      *ports.ToolCall     `json:"tool_call,omitempty"`
}

// InteractionResponse is a user's answer to a pending interaction.
type InteractionResponse struct {
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	InputValue       string `json:"input_value,omitempty"`
}

// Accepted reports whether the response approves the gated action.
func (r InteractionResponse) Accepted() bool {
	return r.SelectedOptionID == OptionAccept
}

// Instruction is a queued steering message for a running or paused task.
type Instruction struct {
	EventID int64  `json:"event_id"`
	Text    string `json:"text"`
}
