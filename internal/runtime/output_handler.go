package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"otto/internal/agent/ports"
	"otto/internal/task"
	id "otto/internal/utils/id"
)

// outputHandler is the runtime's OutputSink for one drive. It persists tool
// results, records terminal events, and owns the risk gate: a risky call
// never reaches its tool body here; it becomes a pending interaction and
// the drive suspends.
type outputHandler struct {
	m       *Manager
	d       *drive
	visible map[string]bool
}

func (m *Manager) newOutputHandler(d *drive) *outputHandler {
	return &outputHandler{m: m, d: d, visible: make(map[string]bool)}
}

// allow marks the tool names the drive's agent may call. Calls outside this
// set get an error tool result instead of executing.
func (h *outputHandler) allow(defs []ports.ToolDefinition) {
	for _, def := range defs {
		h.visible[def.Name] = true
	}
}

func (h *outputHandler) Consume(ctx context.Context, out ports.AgentOutput) (ports.SinkDirective, error) {
	taskID := h.d.task.TaskID

	// Cancels and pauses are observed at output boundaries: either one
	// recorded mid-drive stops the sequence before the next output takes
	// effect, so nothing lands on a stream the reducer would refuse.
	halted, status, err := h.drainHalted(ctx)
	if err != nil {
		return ports.SinkStop, err
	}
	if halted {
		h.m.logger.Info("Task %s %s mid-drive; stopping output sequence", taskID, status)
		return ports.SinkStop, nil
	}

	switch out.Kind {
	case ports.OutputText, ports.OutputReasoning, ports.OutputVerbose, ports.OutputError:
		h.m.notify(taskID, out)
		return ports.SinkContinue, nil

	case ports.OutputToolCall:
		if out.Call == nil {
			return ports.SinkContinue, nil
		}
		return h.consumeToolCall(ctx, *out.Call)

	case ports.OutputDone:
		h.m.notify(taskID, out)
		payload := task.TaskCompletedPayload{TaskID: taskID, Summary: out.Summary}
		if err := h.m.append(ctx, h.d, task.EventTaskCompleted, payload); err != nil {
			return ports.SinkStop, err
		}
		return ports.SinkStop, nil

	case ports.OutputFailed:
		h.m.notify(taskID, out)
		payload := task.TaskFailedPayload{TaskID: taskID, Reason: out.Reason}
		if err := h.m.append(ctx, h.d, task.EventTaskFailed, payload); err != nil {
			return ports.SinkStop, err
		}
		return ports.SinkStop, nil
	}

	return ports.SinkContinue, nil
}

func (h *outputHandler) consumeToolCall(ctx context.Context, call ports.ToolCall) (ports.SinkDirective, error) {
	taskID := h.d.task.TaskID
	h.m.notify(taskID, ports.AgentOutput{Kind: ports.OutputToolCall, Call: &call})

	if !h.visible[call.Name] {
		return h.persistResult(ctx, &ports.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("tool %q is not available to this agent", call.Name),
			IsError: true,
		})
	}

	tool, err := h.m.registry.Get(call.Name)
	if err != nil {
		return h.persistResult(ctx, &ports.ToolResult{
			CallID:  call.ID,
			Content: err.Error(),
			IsError: true,
		})
	}

	if tool.Metadata().Risk == ports.RiskRisky {
		if err := h.requestApproval(ctx, tool, call); err != nil {
			return ports.SinkStop, err
		}
		return ports.SinkStop, nil
	}

	result := h.m.executor.Execute(ctx, call)
	h.m.metrics.observeToolCall(call.Name, result.IsError)
	return h.persistResult(ctx, result)
}

func (h *outputHandler) persistResult(ctx context.Context, result *ports.ToolResult) (ports.SinkDirective, error) {
	turn := ports.Message{
		Role:       ports.RoleTool,
		Content:    result.Content,
		ToolCallID: result.CallID,
		IsError:    result.IsError,
	}
	if err := h.m.conversations.Append(ctx, h.d.task.TaskID, turn); err != nil {
		return ports.SinkStop, fmt.Errorf("persist tool result: %w", err)
	}
	return ports.SinkContinue, nil
}

// requestApproval records a confirm interaction carrying the gated call and
// moves the task to awaiting_user. The preview, when the tool can render
// one, is shown in the interaction description.
func (h *outputHandler) requestApproval(ctx context.Context, tool ports.ToolExecutor, call ports.ToolCall) error {
	taskID := h.d.task.TaskID

	description := summarizeArgs(call)
	if previewer, ok := tool.(ports.Previewer); ok {
		if preview, err := previewer.Preview(ctx, call); err == nil && preview != "" {
			description = preview
		}
	}

	payload := task.UserInteractionRequestedPayload{
		InteractionID: id.NewInteractionID(),
		TaskID:        taskID,
		Kind:          task.InteractionConfirm,
		Purpose:       "tool_approval",
		Display: task.InteractionDisplay{
			Title:       fmt.Sprintf("Allow %s?", call.Name),
			Description: description,
		},
		Options: []task.InteractionOption{
			{ID: task.OptionAccept, Label: "Allow", Style: "primary"},
			{ID: task.OptionReject, Label: "Reject", Style: "danger"},
		},
		ToolCall: &call,
	}
	if err := h.m.append(ctx, h.d, task.EventUserInteractionRequested, payload); err != nil {
		return err
	}
	h.m.logger.Info("Task %s awaiting approval of %s (interaction %s)", taskID, call.Name, payload.InteractionID)
	return nil
}

// drainHalted reports whether the task left the driving agent's control
// since the last output, via cancel or pause.
func (h *outputHandler) drainHalted(ctx context.Context) (bool, task.Status, error) {
	t, err := h.m.tasks.GetTask(ctx, h.d.task.TaskID)
	if err != nil {
		return false, "", err
	}
	if t.Status == task.StatusCanceled || t.Status == task.StatusPaused {
		return true, t.Status, nil
	}
	return false, t.Status, nil
}

func summarizeArgs(call ports.ToolCall) string {
	if len(call.Arguments) == 0 {
		return call.Name
	}
	keys := make([]string, 0, len(call.Arguments))
	for key := range call.Arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		text := fmt.Sprintf("%v", call.Arguments[key])
		if runes := []rune(text); len(runes) > 120 {
			text = string(runes[:120]) + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, text))
	}
	return strings.Join(parts, "\n")
}
