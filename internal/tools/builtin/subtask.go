package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"otto/internal/agent/ports"
)

// createSubtasks implements parallel task delegation via tool calling. The
// coordinator blocks until every child reaches a terminal status
// (fork-join), so the parent's turn is occupied for the children's full
// execution. The tool belongs to the subtask group, which the runtime only
// exposes to top-level tasks; children therefore can never fork further.
type createSubtasks struct {
	coordinator ports.SubtaskCoordinator
}

// NewCreateSubtasks creates the fork-join tool with coordinator injection.
func NewCreateSubtasks(coordinator ports.SubtaskCoordinator) ports.ToolExecutor {
	return &createSubtasks{coordinator: coordinator}
}

func (t *createSubtasks) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:    "createSubtasks",
		Version: "1.0.0",
		Risk:    ports.RiskSafe,
		Group:   ports.GroupSubtask,
		Tags:    []string{"delegation", "parallel", "orchestration"},
	}
}

func (t *createSubtasks) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "createSubtasks",
		Description: "Fork independent subtasks and wait until all of them finish. " +
			"Use only for substantial work that benefits from parallel execution; " +
			"each subtask runs with its own agent and cannot fork further.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"subtasks": {
					Type:        "array",
					Description: "Subtasks to fork",
					Items: &ports.Property{
						Type: "object",
						Properties: map[string]ports.Property{
							"title":    {Type: "string", Description: "Short subtask title"},
							"intent":   {Type: "string", Description: "What the subtask should accomplish"},
							"agent_id": {Type: "string", Description: "Agent to run the subtask; defaults to the parent's agent"},
							"priority": {Type: "string", Description: "foreground, normal or background", Enum: []any{"foreground", "normal", "background"}},
						},
					},
				},
			},
			Required: []string{"subtasks"},
		},
	}
}

func (t *createSubtasks) CanExecute(ctx context.Context, call ports.ToolCall) error {
	specs, err := parseSubtaskSpecs(call)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("subtasks must not be empty")
	}
	return nil
}

func (t *createSubtasks) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	specs, err := parseSubtaskSpecs(call)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	result, err := t.coordinator.CreateSubtasks(ctx, call.TaskID, specs)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "subtasks finished: success=%d error=%d cancel=%d\n", result.Success, result.Error, result.Cancel)
	for _, outcome := range result.Outcomes {
		fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", outcome.Status, outcome.Title, outcome.TaskID, outcome.Summary)
	}
	return &ports.ToolResult{Content: b.String()}, nil
}

func parseSubtaskSpecs(call ports.ToolCall) ([]ports.SubtaskSpec, error) {
	raw, ok := call.Arguments["subtasks"]
	if !ok {
		return nil, fmt.Errorf("missing 'subtasks'")
	}
	// Round-trip through JSON to turn []any of maps into typed specs.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode subtasks: %w", err)
	}
	var specs []ports.SubtaskSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("subtasks must be a list of {title, intent, agent_id, priority}: %w", err)
	}
	for i, spec := range specs {
		if strings.TrimSpace(spec.Title) == "" {
			return nil, fmt.Errorf("subtask %d has no title", i)
		}
	}
	return specs, nil
}

type listSubtask struct {
	coordinator ports.SubtaskCoordinator
}

// NewListSubtask reports the current status of a task's children.
func NewListSubtask(coordinator ports.SubtaskCoordinator) ports.ToolExecutor {
	return &listSubtask{coordinator: coordinator}
}

func (t *listSubtask) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:    "listSubtask",
		Version: "1.0.0",
		Risk:    ports.RiskSafe,
		Group:   ports.GroupSubtask,
	}
}

func (t *listSubtask) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "listSubtask",
		Description: "List this task's subtasks with their status and summary",
		Parameters: ports.ParameterSchema{
			Type:       "object",
			Properties: map[string]ports.Property{},
		},
	}
}

func (t *listSubtask) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	outcomes, err := t.coordinator.ListSubtasks(ctx, call.TaskID)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	if len(outcomes) == 0 {
		return &ports.ToolResult{Content: "no subtasks"}, nil
	}
	var b strings.Builder
	for _, outcome := range outcomes {
		fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", outcome.Status, outcome.Title, outcome.TaskID, outcome.Summary)
	}
	return &ports.ToolResult{Content: b.String()}, nil
}
