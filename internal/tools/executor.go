package tools

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"otto/internal/agent/ports"
	"otto/internal/audit"
)

// Executor runs tool calls through the full protocol: schema validation,
// the tool's own CanExecute guard, the body, and audit recording. No error
// ever escapes this boundary; every failure becomes a structured result
// the agent loop can react to.
type Executor struct {
	registry ports.ToolRegistry
	audit    *audit.Log
	logger   ports.Logger
	tracer   trace.Tracer
}

// NewExecutor wires the execution path.
func NewExecutor(registry ports.ToolRegistry, auditLog *audit.Log, logger ports.Logger) *Executor {
	return &Executor{
		registry: registry,
		audit:    auditLog,
		logger:   ports.OrNop(logger),
		tracer:   otel.Tracer("otto/tools"),
	}
}

// Execute resolves and runs one call. The returned result always carries
// the call id; IsError marks validation failures, guard rejections, and
// body failures alike.
func (e *Executor) Execute(ctx context.Context, call ports.ToolCall) *ports.ToolResult {
	ctx, span := e.tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("task.id", call.TaskID),
	))
	defer span.End()

	e.recordRequested(call)
	started := time.Now()

	result := e.run(ctx, call)
	result.CallID = call.ID
	result.DurationMs = time.Since(started).Milliseconds()

	e.recordCompleted(call, result)
	span.SetAttributes(attribute.Bool("tool.is_error", result.IsError))
	if result.IsError {
		e.logger.Warn("Tool %s failed: %s", call.Name, result.Content)
	} else {
		e.logger.Debug("Tool %s completed in %dms", call.Name, result.DurationMs)
	}
	return result
}

func (e *Executor) run(ctx context.Context, call ports.ToolCall) *ports.ToolResult {
	tool, err := e.registry.Get(call.Name)
	if err != nil {
		return errorResult(err)
	}

	if err := ValidateArgs(tool.Definition().Parameters, call.Arguments); err != nil {
		return errorResult(fmt.Errorf("invalid arguments for %s: %w", call.Name, err))
	}

	// The guard runs before any side effect; a rejection never reaches the body.
	if guard, ok := tool.(ports.Guard); ok {
		if err := guard.CanExecute(ctx, call); err != nil {
			return errorResult(err)
		}
	}

	result, err := tool.Execute(ctx, call)
	if err != nil {
		return errorResult(err)
	}
	if result == nil {
		result = &ports.ToolResult{}
	}
	return result
}

func errorResult(err error) *ports.ToolResult {
	return &ports.ToolResult{Content: err.Error(), IsError: true}
}

func (e *Executor) recordRequested(call ports.ToolCall) {
	if e.audit == nil {
		return
	}
	_, err := e.audit.Record(audit.TypeToolCallRequested, audit.Payload{
		TaskID:   call.TaskID,
		ToolName: call.Name,
		Args:     call.Arguments,
	})
	if err != nil {
		e.logger.Error("Failed to record ToolCallRequested for %s: %v", call.Name, err)
	}
}

func (e *Executor) recordCompleted(call ports.ToolCall, result *ports.ToolResult) {
	if e.audit == nil {
		return
	}
	_, err := e.audit.Record(audit.TypeToolCallCompleted, audit.Payload{
		TaskID:     call.TaskID,
		ToolName:   call.Name,
		Output:     result.Content,
		IsError:    result.IsError,
		DurationMs: result.DurationMs,
	})
	if err != nil {
		e.logger.Error("Failed to record ToolCallCompleted for %s: %v", call.Name, err)
	}
}
