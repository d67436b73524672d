package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/agent/ports"
)

func TestNormalizeToolCallsDecodesRawArguments(t *testing.T) {
	calls := NormalizeToolCalls([]ports.ToolCall{
		{ID: "call-1", Name: "readFile", RawArguments: `{"path": "private:/a.txt"}`},
	}, nil)

	require.Len(t, calls, 1)
	assert.Equal(t, "private:/a.txt", calls[0].Arguments["path"])
	assert.Empty(t, calls[0].RawArguments)
}

func TestNormalizeToolCallsRepairsMalformedJSON(t *testing.T) {
	calls := NormalizeToolCalls([]ports.ToolCall{
		{ID: "call-1", Name: "searchText", RawArguments: `{'pattern': 'beta', 'path': 'private:/',}`},
	}, nil)

	require.Len(t, calls, 1)
	assert.Equal(t, "beta", calls[0].Arguments["pattern"])
}

func TestNormalizeToolCallsDropsUnrecoverable(t *testing.T) {
	calls := NormalizeToolCalls([]ports.ToolCall{
		{ID: "call-1", Name: "", Arguments: map[string]any{"x": 1}},
		{ID: "call-2", Name: "readFile", RawArguments: `"not an object"`},
		{ID: "call-3", Name: "listFiles"},
	}, nil)

	require.Len(t, calls, 1)
	assert.Equal(t, "listFiles", calls[0].Name)
	assert.NotNil(t, calls[0].Arguments)
}

func TestNormalizeToolCallsAssignsMissingIDs(t *testing.T) {
	calls := NormalizeToolCalls([]ports.ToolCall{
		{Name: "readFile", Arguments: map[string]any{"path": "a"}},
		{Name: "listFiles", Arguments: map[string]any{}},
	}, nil)

	require.Len(t, calls, 2)
	assert.NotEmpty(t, calls[0].ID)
	assert.NotEmpty(t, calls[1].ID)
	assert.NotEqual(t, calls[0].ID, calls[1].ID)
}
