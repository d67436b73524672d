package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/agent/ports"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(store, nil)
}

func TestAppendAndHistoryPreserveOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	require.NoError(t, m.Append(ctx, "t1",
		ports.Message{Role: ports.RoleSystem, Content: "prompt", Source: ports.MessageSourceSystemPrompt},
		ports.Message{Role: ports.RoleUser, Content: "goal", Source: ports.MessageSourceUserInput},
	))
	require.NoError(t, m.Append(ctx, "t1", ports.Message{Role: ports.RoleAssistant, Content: "working"}))

	history, err := m.History(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ports.RoleSystem, history[0].Role)
	assert.Equal(t, "working", history[2].Content)
	assert.False(t, history[0].CreatedAt.IsZero())
}

func TestHistoriesAreIsolatedPerTask(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	require.NoError(t, m.Append(ctx, "t1", ports.Message{Role: ports.RoleUser, Content: "one"}))
	require.NoError(t, m.Append(ctx, "t2", ports.Message{Role: ports.RoleUser, Content: "two"}))

	h1, err := m.History(ctx, "t1")
	require.NoError(t, err)
	h2, err := m.History(ctx, "t2")
	require.NoError(t, err)
	require.Len(t, h1, 1)
	require.Len(t, h2, 1)
	assert.Equal(t, "one", h1[0].Content)
	assert.Equal(t, "two", h2[0].Content)

	empty, err := m.History(ctx, "never-seen")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestToolCallsRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	require.NoError(t, m.Append(ctx, "t1", ports.Message{
		Role: ports.RoleAssistant,
		ToolCalls: []ports.ToolCall{
			{ID: "call-1", Name: "readFile", Arguments: map[string]any{"path": "private:/a.txt"}},
		},
	}))
	require.NoError(t, m.Append(ctx, "t1", ports.Message{
		Role:       ports.RoleTool,
		ToolCallID: "call-1",
		Content:    "hello",
	}))

	history, err := m.History(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Len(t, history[0].ToolCalls, 1)
	assert.Equal(t, "readFile", history[0].ToolCalls[0].Name)
	assert.Empty(t, ports.PendingToolCalls(history))
}

func TestForTaskBindsTaskID(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	conv := m.ForTask("t1")
	require.NoError(t, conv.Append(ctx, ports.Message{Role: ports.RoleUser, Content: "hi"}))

	history, err := conv.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)

	other, err := m.History(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTokenCountGrowsWithContent(t *testing.T) {
	m := newTestManager(t)

	small := m.TokenCount([]ports.Message{{Role: ports.RoleUser, Content: "hi"}})
	large := m.TokenCount([]ports.Message{
		{Role: ports.RoleUser, Content: "hi"},
		{Role: ports.RoleAssistant, Content: "a much longer answer with many more words in it"},
	})
	assert.Greater(t, small, 0)
	assert.Greater(t, large, small)
}
