package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/agent/ports"
	"otto/internal/eventstore"
)

func stored(t *testing.T, id int64, streamID, eventType string, payload any) eventstore.StoredEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return eventstore.StoredEvent{ID: id, StreamID: streamID, Seq: id, Type: eventType, Payload: raw}
}

func reduceAll(t *testing.T, events ...eventstore.StoredEvent) ProjectionState {
	t.Helper()
	state := NewProjectionState()
	for _, ev := range events {
		state = Reduce(state, ev)
	}
	return state
}

func TestReduceBuildsLifecycle(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "t1", EventTaskCreated, TaskCreatedPayload{TaskID: "t1", Title: "demo", AgentID: "assistant", Priority: PriorityNormal}),
		stored(t, 2, "t1", EventTaskStarted, TaskStartedPayload{TaskID: "t1"}),
		stored(t, 3, "t1", EventTaskCompleted, TaskCompletedPayload{TaskID: "t1", Summary: "all good"}),
	)

	task := state.Tasks["t1"]
	require.NotNil(t, task)
	assert.Equal(t, StatusDone, task.Status)
	assert.Equal(t, "all good", task.Summary)
}

func TestReduceIgnoresInvalidTransitions(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "t1", EventTaskCreated, TaskCreatedPayload{TaskID: "t1", Title: "demo", AgentID: "assistant"}),
		// done without ever starting is not a legal move from open
		stored(t, 2, "t1", EventTaskCompleted, TaskCompletedPayload{TaskID: "t1"}),
	)
	assert.Equal(t, StatusOpen, state.Tasks["t1"].Status)

	state = Reduce(state, stored(t, 3, "t1", EventTaskStarted, TaskStartedPayload{TaskID: "t1"}))
	state = Reduce(state, stored(t, 4, "t1", EventTaskCanceled, TaskCanceledPayload{TaskID: "t1"}))
	assert.Equal(t, StatusCanceled, state.Tasks["t1"].Status)

	// Nothing moves a terminal task.
	state = Reduce(state, stored(t, 5, "t1", EventTaskResumed, TaskResumedPayload{TaskID: "t1"}))
	assert.Equal(t, StatusCanceled, state.Tasks["t1"].Status)
}

func TestReduceEventsForUnknownStreamAreNoOps(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "ghost", EventTaskStarted, TaskStartedPayload{TaskID: "ghost"}),
		stored(t, 2, "ghost", EventTaskCompleted, TaskCompletedPayload{TaskID: "ghost"}),
	)
	assert.Empty(t, state.Tasks)
	assert.Empty(t, state.Pending)
}

func TestReduceTracksAtMostOnePendingInteraction(t *testing.T) {
	call := &ports.ToolCall{ID: "call-1", Name: "writeFile"}
	state := reduceAll(t,
		stored(t, 1, "t1", EventTaskCreated, TaskCreatedPayload{TaskID: "t1", Title: "demo", AgentID: "assistant"}),
		stored(t, 2, "t1", EventTaskStarted, TaskStartedPayload{TaskID: "t1"}),
		stored(t, 3, "t1", EventUserInteractionRequested, UserInteractionRequestedPayload{
			InteractionID: "int-1", TaskID: "t1", Kind: InteractionConfirm, ToolCall: call,
		}),
	)

	require.NotNil(t, state.Pending["t1"])
	assert.Equal(t, StatusAwaitingUser, state.Tasks["t1"].Status)
	assert.Equal(t, "call-1", state.Pending["t1"].ToolCall.ID)

	// A second request while one is open cannot apply: awaiting_user does
	// not transition to awaiting_user.
	state = Reduce(state, stored(t, 4, "t1", EventUserInteractionRequested, UserInteractionRequestedPayload{
		InteractionID: "int-2", TaskID: "t1", Kind: InteractionConfirm,
	}))
	assert.Equal(t, "int-1", state.Pending["t1"].InteractionID)

	state = Reduce(state, stored(t, 5, "t1", EventUserInteractionResponded, UserInteractionRespondedPayload{
		InteractionID: "int-1", TaskID: "t1", SelectedOptionID: OptionAccept,
	}))
	assert.Nil(t, state.Pending["t1"])
	assert.Equal(t, StatusInProgress, state.Tasks["t1"].Status)
}

func TestReduceResponseForWrongInteractionIsIgnored(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "t1", EventTaskCreated, TaskCreatedPayload{TaskID: "t1", Title: "demo", AgentID: "assistant"}),
		stored(t, 2, "t1", EventTaskStarted, TaskStartedPayload{TaskID: "t1"}),
		stored(t, 3, "t1", EventUserInteractionRequested, UserInteractionRequestedPayload{
			InteractionID: "int-1", TaskID: "t1", Kind: InteractionConfirm,
		}),
		stored(t, 4, "t1", EventUserInteractionResponded, UserInteractionRespondedPayload{
			InteractionID: "int-stale", TaskID: "t1", SelectedOptionID: OptionReject,
		}),
	)
	require.NotNil(t, state.Pending["t1"])
	assert.Equal(t, StatusAwaitingUser, state.Tasks["t1"].Status)
}

func TestReduceCancelClearsPendingInteraction(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "t1", EventTaskCreated, TaskCreatedPayload{TaskID: "t1", Title: "demo", AgentID: "assistant"}),
		stored(t, 2, "t1", EventTaskStarted, TaskStartedPayload{TaskID: "t1"}),
		stored(t, 3, "t1", EventUserInteractionRequested, UserInteractionRequestedPayload{
			InteractionID: "int-1", TaskID: "t1", Kind: InteractionConfirm,
		}),
		stored(t, 4, "t1", EventTaskCanceled, TaskCanceledPayload{TaskID: "t1", Reason: "user"}),
	)
	assert.Equal(t, StatusCanceled, state.Tasks["t1"].Status)
	assert.Nil(t, state.Pending["t1"])
}

func TestReduceQueuesInstructionsUntilTerminal(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "t1", EventTaskCreated, TaskCreatedPayload{TaskID: "t1", Title: "demo", AgentID: "assistant"}),
		stored(t, 2, "t1", EventTaskInstructionAdded, TaskInstructionAddedPayload{TaskID: "t1", Text: "focus on docs"}),
		stored(t, 3, "t1", EventTaskStarted, TaskStartedPayload{TaskID: "t1"}),
		stored(t, 4, "t1", EventTaskInstructionAdded, TaskInstructionAddedPayload{TaskID: "t1", Text: "skip tests"}),
	)
	require.Len(t, state.Instructions["t1"], 2)
	assert.Equal(t, "focus on docs", state.Instructions["t1"][0].Text)
	assert.Equal(t, int64(4), state.Instructions["t1"][1].EventID)
}

func TestChildrenAndDepth(t *testing.T) {
	state := reduceAll(t,
		stored(t, 1, "root", EventTaskCreated, TaskCreatedPayload{TaskID: "root", Title: "root", AgentID: "assistant"}),
		stored(t, 2, "c1", EventTaskCreated, TaskCreatedPayload{TaskID: "c1", Title: "child", AgentID: "assistant", ParentTaskID: "root"}),
		stored(t, 3, "g1", EventTaskCreated, TaskCreatedPayload{TaskID: "g1", Title: "grandchild", AgentID: "assistant", ParentTaskID: "c1"}),
	)
	assert.Len(t, state.Children("root"), 1)
	assert.Len(t, state.Children("c1"), 1)
	assert.Equal(t, 0, state.Depth("root"))
	assert.Equal(t, 1, state.Depth("c1"))
	assert.Equal(t, 2, state.Depth("g1"))
}

func TestStatusTerminalAndTransitions(t *testing.T) {
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusAwaitingUser.Terminal())

	assert.True(t, StatusOpen.CanTransition(StatusInProgress))
	assert.False(t, StatusOpen.CanTransition(StatusDone))
	assert.True(t, StatusAwaitingUser.CanTransition(StatusCanceled))
	assert.False(t, StatusDone.CanTransition(StatusInProgress))
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, PriorityNormal, NormalizePriority(""))
	assert.Equal(t, PriorityNormal, NormalizePriority("urgent"))
	assert.Equal(t, PriorityForeground, NormalizePriority("foreground"))
}
