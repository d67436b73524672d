package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/agent/ports"
	"otto/internal/audit"
)

// fakeTool is a configurable in-memory tool for registry and executor tests.
type fakeTool struct {
	name       string
	group      ports.ToolGroup
	risk       ports.RiskLevel
	required   []string
	guardErr   error
	executeErr error
	executed   int
}

func (f *fakeTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	f.executed++
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return &ports.ToolResult{Content: "ok from " + f.name}, nil
}

func (f *fakeTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        f.name,
		Description: "fake tool",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string"},
			},
			Required: f.required,
		},
	}
}

func (f *fakeTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: f.name, Risk: f.risk, Group: f.group}
}

func (f *fakeTool) CanExecute(ctx context.Context, call ports.ToolCall) error {
	return f.guardErr
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "readFile"}))
	assert.Error(t, r.Register(&fakeTool{name: "readFile"}))
	assert.Error(t, r.Register(&fakeTool{}))
}

func TestDefinitionsFilterByGroup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "readFile"}))
	require.NoError(t, r.Register(&fakeTool{name: "searchText", group: ports.GroupSearch}))
	require.NoError(t, r.Register(&fakeTool{name: "writeFile", group: ports.GroupEdit}))
	require.NoError(t, r.Register(&fakeTool{name: "createSubtasks", group: ports.GroupSubtask}))

	names := func(defs []ports.ToolDefinition) []string {
		out := make([]string, 0, len(defs))
		for _, d := range defs {
			out = append(out, d.Name)
		}
		return out
	}

	// Group-less tools are always visible.
	assert.Equal(t, []string{"readFile"}, names(r.Definitions(nil)))
	assert.Equal(t, []string{"readFile", "searchText"}, names(r.Definitions([]ports.ToolGroup{ports.GroupSearch})))
	assert.Equal(t,
		[]string{"createSubtasks", "readFile", "writeFile"},
		names(r.Definitions([]ports.ToolGroup{ports.GroupEdit, ports.GroupSubtask})))
}

func TestDefinitionsCacheInvalidatedByRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "readFile"}))
	assert.Len(t, r.Definitions(nil), 1)

	require.NoError(t, r.Register(&fakeTool{name: "listFiles"}))
	assert.Len(t, r.Definitions(nil), 2)
}

func newTestExecutor(t *testing.T, reg *Registry) *Executor {
	t.Helper()
	auditLog, err := audit.Open(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditLog.Close() })
	return NewExecutor(reg, auditLog, nil)
}

func TestExecutorRunsToolAndStampsResult(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	tool := &fakeTool{name: "readFile"}
	require.NoError(t, reg.Register(tool))
	exec := newTestExecutor(t, reg)

	result := exec.Execute(ctx, ports.ToolCall{ID: "call-1", Name: "readFile", Arguments: map[string]any{"path": "private:/a.txt"}})
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.Equal(t, "call-1", result.CallID)
	assert.Equal(t, "ok from readFile", result.Content)
	assert.Equal(t, 1, tool.executed)
}

func TestExecutorUnknownToolIsErrorResult(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, NewRegistry())

	result := exec.Execute(ctx, ports.ToolCall{ID: "call-1", Name: "nope"})
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "not found")
}

func TestExecutorGuardFailureSkipsBody(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	tool := &fakeTool{name: "editFile", guardErr: fmt.Errorf("old_text not found")}
	require.NoError(t, reg.Register(tool))
	exec := newTestExecutor(t, reg)

	result := exec.Execute(ctx, ports.ToolCall{ID: "call-1", Name: "editFile", Arguments: map[string]any{"path": "x"}})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "old_text not found")
	assert.Equal(t, 0, tool.executed)
}

func TestExecutorInvalidArgsSkipBody(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	tool := &fakeTool{name: "readFile", required: []string{"path"}}
	require.NoError(t, reg.Register(tool))
	exec := newTestExecutor(t, reg)

	result := exec.Execute(ctx, ports.ToolCall{ID: "call-1", Name: "readFile", Arguments: map[string]any{}})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "path")
	assert.Equal(t, 0, tool.executed)
}

func TestValidateArgs(t *testing.T) {
	schema := ports.ParameterSchema{
		Type: "object",
		Properties: map[string]ports.Property{
			"path":      {Type: "string"},
			"max":       {Type: "integer"},
			"recursive": {Type: "boolean"},
			"tags":      {Type: "array", Items: &ports.Property{Type: "string"}},
			"mode":      {Type: "string", Enum: []any{"fast", "full"}},
		},
		Required: []string{"path"},
	}

	assert.NoError(t, ValidateArgs(schema, map[string]any{"path": "a"}))
	assert.NoError(t, ValidateArgs(schema, map[string]any{"path": "a", "max": float64(3), "recursive": true}))
	assert.NoError(t, ValidateArgs(schema, map[string]any{"path": "a", "tags": []any{"x", "y"}}))
	assert.NoError(t, ValidateArgs(schema, map[string]any{"path": "a", "mode": "fast"}))

	assert.ErrorContains(t, ValidateArgs(schema, map[string]any{}), "missing required")
	assert.ErrorContains(t, ValidateArgs(schema, map[string]any{"path": "a", "bogus": 1}), "unknown argument")
	assert.ErrorContains(t, ValidateArgs(schema, map[string]any{"path": 1}), "expected string")
	assert.ErrorContains(t, ValidateArgs(schema, map[string]any{"path": "a", "tags": []any{1}}), "item 0")
	assert.ErrorContains(t, ValidateArgs(schema, map[string]any{"path": "a", "mode": "slow"}), "allowed options")
}
