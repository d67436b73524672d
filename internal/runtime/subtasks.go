package runtime

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"otto/internal/agent/ports"
	"otto/internal/eventstore"
	"otto/internal/task"
)

// ErrSubtaskDepth is returned when a fork would exceed the configured
// subtask nesting limit.
var ErrSubtaskDepth = fmt.Errorf("subtask depth limit exceeded")

// CreateSubtasks forks child tasks under parentTaskID and joins on all of
// them: the call returns only once every child is terminal. Children that
// suspend for user input are waited on through the event store and
// re-driven after the user responds.
func (m *Manager) CreateSubtasks(ctx context.Context, parentTaskID string, specs []ports.SubtaskSpec) (*ports.SubtaskResult, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one subtask is required")
	}

	parent, err := m.tasks.GetTask(ctx, parentTaskID)
	if err != nil {
		return nil, err
	}

	state, err := m.tasks.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if state.Depth(parentTaskID)+1 > m.maxSubtaskDepth {
		return nil, fmt.Errorf("forking under %s: %w (max %d)", parentTaskID, ErrSubtaskDepth, m.maxSubtaskDepth)
	}

	childIDs := make([]string, 0, len(specs))
	for _, spec := range specs {
		agentID := spec.AgentID
		if agentID == "" {
			agentID = parent.AgentID
		}
		if _, err := m.agents.Resolve(agentID); err != nil {
			return nil, fmt.Errorf("subtask %q: %w", spec.Title, err)
		}
		childID, err := m.tasks.CreateTask(ctx, task.CreateTaskRequest{
			Title:        spec.Title,
			Intent:       spec.Intent,
			AgentID:      agentID,
			Priority:     spec.Priority,
			ParentTaskID: parentTaskID,
			CreatedBy:    parentTaskID,
		})
		if err != nil {
			return nil, fmt.Errorf("create subtask %q: %w", spec.Title, err)
		}
		childIDs = append(childIDs, childID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxSubtaskWorkers)
	for _, childID := range childIDs {
		childID := childID
		g.Go(func() error {
			return m.driveToTerminal(gctx, childID)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("subtask round under %s: %w", parentTaskID, err)
	}

	return m.collectOutcomes(ctx, parentTaskID, childIDs)
}

// ListSubtasks returns the current state of every direct child of
// parentTaskID.
func (m *Manager) ListSubtasks(ctx context.Context, parentTaskID string) ([]ports.SubtaskOutcome, error) {
	if _, err := m.tasks.GetTask(ctx, parentTaskID); err != nil {
		return nil, err
	}
	state, err := m.tasks.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	children := state.Children(parentTaskID)
	sort.Slice(children, func(i, j int) bool {
		if children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].TaskID < children[j].TaskID
		}
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
	out := make([]ports.SubtaskOutcome, 0, len(children))
	for _, child := range children {
		out = append(out, outcomeOf(child))
	}
	return out, nil
}

// driveToTerminal repeatedly drives one child. When a drive rests at
// awaiting_user or paused, it blocks until an event on the child's stream
// unblocks it (a user response, a resume, or a cancel), then drives again.
func (m *Manager) driveToTerminal(ctx context.Context, taskID string) error {
	for {
		result, err := m.ExecuteTask(ctx, taskID)
		if err != nil {
			return err
		}
		if result.Status.Terminal() {
			return nil
		}
		if err := m.waitForProgress(ctx, taskID); err != nil {
			return err
		}
	}
}

// progressEvents are the stream events that can unblock a resting task.
var progressEvents = map[string]bool{
	task.EventUserInteractionResponded: true,
	task.EventTaskResumed:              true,
	task.EventTaskCanceled:             true,
}

func (m *Manager) waitForProgress(ctx context.Context, taskID string) error {
	ready := make(chan struct{}, 1)
	cancelWatch := m.tasks.Store().Watch(func(events []eventstore.StoredEvent) {
		for _, ev := range events {
			if ev.StreamID == taskID && progressEvents[ev.Type] {
				select {
				case ready <- struct{}{}:
				default:
				}
				return
			}
		}
	})
	defer cancelWatch()

	// Re-check after subscribing; the response may already have landed.
	t, err := m.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status != task.StatusAwaitingUser && t.Status != task.StatusPaused {
		return nil
	}
	m.logger.Debug("Waiting on task %s (%s) before re-driving", taskID, t.Status)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
		return nil
	}
}

func (m *Manager) collectOutcomes(ctx context.Context, parentTaskID string, childIDs []string) (*ports.SubtaskResult, error) {
	state, err := m.tasks.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	result := &ports.SubtaskResult{Outcomes: make([]ports.SubtaskOutcome, 0, len(childIDs))}
	for _, childID := range childIDs {
		child, ok := state.Tasks[childID]
		if !ok {
			return nil, fmt.Errorf("subtask %s: %w", childID, task.ErrTaskNotFound)
		}
		switch child.Status {
		case task.StatusDone:
			result.Success++
		case task.StatusFailed:
			result.Error++
		case task.StatusCanceled:
			result.Cancel++
		}
		result.Outcomes = append(result.Outcomes, outcomeOf(child))
	}
	m.logger.Info("Subtask round under %s joined: %d success, %d error, %d cancel",
		parentTaskID, result.Success, result.Error, result.Cancel)
	return result, nil
}

func outcomeOf(t *task.Task) ports.SubtaskOutcome {
	return ports.SubtaskOutcome{
		TaskID:  t.TaskID,
		Title:   t.Title,
		Status:  string(t.Status),
		Summary: t.Summary,
	}
}
