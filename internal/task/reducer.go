package task

import "otto/internal/eventstore"

// ProjectionName is the checkpoint name of the all-tasks view.
const ProjectionName = "tasks"

// ProjectionState is the materialized all-tasks view folded from the event
// log: every task, the at-most-one pending interaction per awaiting task,
// and the queue of instructions not yet injected into a conversation.
type ProjectionState struct {
	Tasks        map[string]*Task               `json:"tasks"`
	Pending      map[string]*PendingInteraction `json:"pending"`
	Instructions map[string][]Instruction       `json:"instructions"`
}

// NewProjectionState returns an empty all-tasks view.
func NewProjectionState() ProjectionState {
	return ProjectionState{
		Tasks:        make(map[string]*Task),
		Pending:      make(map[string]*PendingInteraction),
		Instructions: make(map[string][]Instruction),
	}
}

func (s *ProjectionState) ensureMaps() {
	if s.Tasks == nil {
		s.Tasks = make(map[string]*Task)
	}
	if s.Pending == nil {
		s.Pending = make(map[string]*PendingInteraction)
	}
	if s.Instructions == nil {
		s.Instructions = make(map[string][]Instruction)
	}
}

// Children returns the tasks whose ParentTaskID is parentID.
func (s ProjectionState) Children(parentID string) []*Task {
	var out []*Task
	for _, t := range s.Tasks {
		if t.ParentTaskID == parentID {
			out = append(out, t)
		}
	}
	return out
}

// Depth returns the number of subtask edges above taskID (0 for top-level).
func (s ProjectionState) Depth(taskID string) int {
	depth := 0
	for {
		t, ok := s.Tasks[taskID]
		if !ok || t.ParentTaskID == "" {
			return depth
		}
		depth++
		taskID = t.ParentTaskID
	}
}

// Reduce folds one stored event into the all-tasks view. It is pure: events
// that would violate the state machine are ignored rather than applied, so
// replaying a historical log can never corrupt the view.
func Reduce(state ProjectionState, ev eventstore.StoredEvent) ProjectionState {
	state.ensureMaps()

	t := state.Tasks[ev.StreamID]
	move := func(next Status) {
		if t != nil && t.Status.CanTransition(next) {
			t.Status = next
		}
	}

	switch ev.Type {
	case EventTaskCreated:
		var p TaskCreatedPayload
		if ev.DecodePayload(&p) != nil {
			return state
		}
		state.Tasks[p.TaskID] = &Task{
			TaskID:       p.TaskID,
			Title:        p.Title,
			Intent:       p.Intent,
			CreatedBy:    p.AuthorActorID,
			AgentID:      p.AgentID,
			Priority:     p.Priority,
			Status:       StatusOpen,
			ArtifactRefs: p.ArtifactRefs,
			CreatedAt:    ev.CreatedAt,
			ParentTaskID: p.ParentTaskID,
		}

	case EventTaskStarted:
		move(StatusInProgress)

	case EventTaskCompleted:
		var p TaskCompletedPayload
		if ev.DecodePayload(&p) != nil {
			return state
		}
		if t != nil && t.Status.CanTransition(StatusDone) {
			t.Status = StatusDone
			t.Summary = p.Summary
		}

	case EventTaskFailed:
		var p TaskFailedPayload
		if ev.DecodePayload(&p) != nil {
			return state
		}
		if t != nil && t.Status.CanTransition(StatusFailed) {
			t.Status = StatusFailed
			t.Summary = p.Reason
		}

	case EventTaskCanceled:
		if t != nil && t.Status.CanTransition(StatusCanceled) {
			t.Status = StatusCanceled
			delete(state.Pending, ev.StreamID)
		}

	case EventTaskPaused:
		move(StatusPaused)

	case EventTaskResumed:
		move(StatusInProgress)

	case EventTaskInstructionAdded:
		var p TaskInstructionAddedPayload
		if ev.DecodePayload(&p) != nil {
			return state
		}
		if t != nil && !t.Status.Terminal() {
			state.Instructions[ev.StreamID] = append(state.Instructions[ev.StreamID], Instruction{
				EventID: ev.ID,
				Text:    p.Text,
			})
		}

	case EventUserInteractionRequested:
		var p UserInteractionRequestedPayload
		if ev.DecodePayload(&p) != nil {
			return state
		}
		if t != nil && t.Status.CanTransition(StatusAwaitingUser) {
			t.Status = StatusAwaitingUser
			state.Pending[ev.StreamID] = &PendingInteraction{
				InteractionID: p.InteractionID,
				TaskID:        p.TaskID,
				Kind:          p.Kind,
				Purpose:       p.Purpose,
				Display:       p.Display,
				Options:       p.Options,
				ToolCall:      p.ToolCall,
			}
		}

	case EventUserInteractionResponded:
		var p UserInteractionRespondedPayload
		if ev.DecodePayload(&p) != nil {
			return state
		}
		pending := state.Pending[ev.StreamID]
		if t != nil && pending != nil && pending.InteractionID == p.InteractionID {
			delete(state.Pending, ev.StreamID)
			move(StatusInProgress)
		}
	}

	return state
}
