package task

import (
	"context"
	"fmt"
	"sort"

	"otto/internal/agent/ports"
	"otto/internal/eventstore"
	id "otto/internal/utils/id"
)

// ErrTaskNotFound is returned when a task id has no stream in the view.
var ErrTaskNotFound = fmt.Errorf("task not found")

// Service owns the task lifecycle commands. It never mutates tasks
// directly: every command appends events and the view catches up by replay.
type Service struct {
	store  eventstore.Store
	logger ports.Logger
}

// NewService wires a task service over the event store.
func NewService(store eventstore.Store, logger ports.Logger) *Service {
	return &Service{store: store, logger: ports.OrNop(logger)}
}

// Store exposes the underlying event store for collaborators that append to
// a task stream themselves (runtime, output handler).
func (s *Service) Store() eventstore.Store { return s.store }

// Refresh replays the all-tasks projection and returns the current view.
func (s *Service) Refresh(ctx context.Context) (ProjectionState, error) {
	state, _, err := eventstore.Replay(ctx, s.store, ProjectionName, NewProjectionState(), Reduce)
	return state, err
}

// CreateTaskRequest carries everything needed to establish a task.
type CreateTaskRequest struct {
	Title        string
	Intent       string
	AgentID      string
	Priority     string
	ArtifactRefs []string
	ParentTaskID string
	CreatedBy    string
}

// CreateTask appends TaskCreated and returns the new task id. A non-empty
// ParentTaskID must name an existing task; the edge is immutable afterwards.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (string, error) {
	if req.Title == "" {
		return "", fmt.Errorf("task title is required")
	}
	if req.AgentID == "" {
		return "", fmt.Errorf("agent id is required")
	}
	if req.ParentTaskID != "" {
		state, err := s.Refresh(ctx)
		if err != nil {
			return "", err
		}
		if _, ok := state.Tasks[req.ParentTaskID]; !ok {
			return "", fmt.Errorf("parent %s: %w", req.ParentTaskID, ErrTaskNotFound)
		}
	}

	taskID := id.NewTaskID()
	payload := TaskCreatedPayload{
		TaskID:        taskID,
		Title:         req.Title,
		Intent:        req.Intent,
		AgentID:       req.AgentID,
		Priority:      NormalizePriority(req.Priority),
		ArtifactRefs:  req.ArtifactRefs,
		ParentTaskID:  req.ParentTaskID,
		AuthorActorID: req.CreatedBy,
	}
	if _, err := s.store.Append(ctx, taskID, []eventstore.Event{{Type: EventTaskCreated, Payload: payload}}); err != nil {
		return "", fmt.Errorf("append TaskCreated: %w", err)
	}
	s.logger.Info("Created task %s (%q, agent=%s, parent=%q)", taskID, req.Title, req.AgentID, req.ParentTaskID)
	return taskID, nil
}

// CancelTask appends TaskCanceled. Canceling an already-terminal task is a
// no-op, not an error.
func (s *Service) CancelTask(ctx context.Context, taskID, reason string) error {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		s.logger.Debug("Cancel of terminal task %s ignored", taskID)
		return nil
	}
	payload := TaskCanceledPayload{TaskID: taskID, Reason: reason}
	if _, err := s.store.Append(ctx, taskID, []eventstore.Event{{Type: EventTaskCanceled, Payload: payload}}); err != nil {
		return fmt.Errorf("append TaskCanceled: %w", err)
	}
	return nil
}

// PauseTask moves a running task to paused.
func (s *Service) PauseTask(ctx context.Context, taskID string) error {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !t.Status.CanTransition(StatusPaused) {
		return fmt.Errorf("cannot pause task %s in status %s", taskID, t.Status)
	}
	_, err = s.store.Append(ctx, taskID, []eventstore.Event{{Type: EventTaskPaused, Payload: TaskPausedPayload{TaskID: taskID}}})
	return err
}

// ResumeTask moves a paused task back to in_progress.
func (s *Service) ResumeTask(ctx context.Context, taskID string) error {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status != StatusPaused {
		return fmt.Errorf("cannot resume task %s in status %s", taskID, t.Status)
	}
	_, err = s.store.Append(ctx, taskID, []eventstore.Event{{Type: EventTaskResumed, Payload: TaskResumedPayload{TaskID: taskID}}})
	return err
}

// AddInstruction queues a steering message; the runtime injects it as a
// user turn on the task's next iteration.
func (s *Service) AddInstruction(ctx context.Context, taskID, text string) error {
	if text == "" {
		return fmt.Errorf("instruction text is required")
	}
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is %s; instructions are only accepted before a terminal status", taskID, t.Status)
	}
	payload := TaskInstructionAddedPayload{TaskID: taskID, Text: text}
	_, err = s.store.Append(ctx, taskID, []eventstore.Event{{Type: EventTaskInstructionAdded, Payload: payload}})
	return err
}

// ListTasks returns the materialized tasks ordered by creation time.
func (s *Service) ListTasks(ctx context.Context) ([]Task, error) {
	state, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(state.Tasks))
	for _, t := range state.Tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetTask returns one task from the materialized view.
func (s *Service) GetTask(ctx context.Context, taskID string) (*Task, error) {
	state, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := state.Tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", taskID, ErrTaskNotFound)
	}
	copied := *t
	return &copied, nil
}

// PendingInteraction returns the open interaction for taskID, or nil.
func (s *Service) PendingInteraction(ctx context.Context, taskID string) (*PendingInteraction, error) {
	state, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	p := state.Pending[taskID]
	if p == nil {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}
