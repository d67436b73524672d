// Package domain implements the shared tool-loop every agent reuses. The
// loop is risk-unaware: it emits one tool_call output per requested call,
// never filtering by risk, and leaves gating entirely to the output sink.
// Suspend/resume is not modeled here; a suspended drive simply ends, and a
// fresh run rebuilds its position from the persisted conversation.
package domain

import (
	"context"
	"fmt"
	"strings"

	"otto/internal/agent/ports"
)

const defaultMaxIterations = 10

// Config assembles a LoopAgent.
type Config struct {
	ID            string
	Groups        []ports.ToolGroup
	SystemPrompt  string
	Profile       string
	MaxIterations int
}

// LoopAgent is the stock Agent implementation: seed the conversation,
// replay calls left pending by a prior suspended run, then iterate LLM
// turns until the model stops asking for tools or the budget runs out.
type LoopAgent struct {
	id            string
	groups        []ports.ToolGroup
	systemPrompt  string
	profile       string
	maxIterations int
}

// New builds a LoopAgent from config.
func New(cfg Config) *LoopAgent {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &LoopAgent{
		id:            cfg.ID,
		groups:        cfg.Groups,
		systemPrompt:  cfg.SystemPrompt,
		profile:       cfg.Profile,
		maxIterations: maxIterations,
	}
}

func (a *LoopAgent) ID() string { return a.id }

func (a *LoopAgent) Groups() []ports.ToolGroup { return a.groups }

// Run drives the tool loop, pushing outputs into env.Sink until the sink
// stops the drain or the loop reaches a terminal output. Infrastructure
// failures (LLM, storage) are returned as errors; everything else becomes
// an output.
func (a *LoopAgent) Run(ctx context.Context, task ports.TaskView, env ports.ExecutionEnv) error {
	logger := ports.OrNop(env.Logger)
	conv := env.Conversation

	maxIterations := env.MaxIterations
	if maxIterations <= 0 {
		maxIterations = a.maxIterations
	}

	history, err := conv.History(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if len(history) == 0 {
		seeds := a.seedTurns(task)
		if err := conv.Append(ctx, seeds...); err != nil {
			return fmt.Errorf("seed conversation: %w", err)
		}
		history = seeds
		logger.Debug("Seeded conversation for task %s", task.TaskID)
	}

	if err := a.injectInstructions(ctx, env, history); err != nil {
		return err
	}

	// Replay tool calls left without results by a prior suspended run.
	// The sink either executes them now or suspends again; the agent only
	// observes that every call eventually has a result.
	for _, call := range ports.PendingToolCalls(history) {
		stop, err := a.emitToolCall(ctx, task, env, call)
		if err != nil || stop {
			return err
		}
	}

	// Assistant turns already persisted count against the budget: a drive
	// resumed after a suspension, including one whose gated call the user
	// rejected, does not get a fresh allowance.
	spent := 0
	for _, msg := range history {
		if msg.Role == ports.RoleAssistant {
			spent++
		}
	}

	for iteration := spent + 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		history, err = conv.History(ctx)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		logger.Debug("Iteration %d/%d for task %s: %d messages, ~%d tokens",
			iteration, maxIterations, task.TaskID, len(history), conv.TokenCount(history))

		resp, err := env.LLM.Complete(ctx, ports.CompletionRequest{
			Profile:  env.Profile,
			Messages: history,
			Tools:    env.Tools,
		})
		if err != nil {
			// Infrastructure failure: surface to observers, then propagate
			// so the task is left resumable instead of failed.
			_, _ = env.Sink.Consume(ctx, ports.AgentOutput{Kind: ports.OutputError, Text: err.Error()})
			return fmt.Errorf("llm complete: %w", err)
		}

		calls := NormalizeToolCalls(resp.ToolCalls, logger)
		assistant := ports.Message{
			Role:      ports.RoleAssistant,
			Content:   resp.Content,
			Reasoning: resp.Reasoning,
			ToolCalls: calls,
		}
		if err := conv.Append(ctx, assistant); err != nil {
			return fmt.Errorf("persist assistant turn: %w", err)
		}

		if resp.Reasoning != "" {
			if stop, err := a.emit(ctx, env, ports.AgentOutput{Kind: ports.OutputReasoning, Text: resp.Reasoning}); err != nil || stop {
				return err
			}
		}
		if resp.Content != "" && len(calls) > 0 {
			if stop, err := a.emit(ctx, env, ports.AgentOutput{Kind: ports.OutputText, Text: resp.Content}); err != nil || stop {
				return err
			}
		}

		if len(calls) == 0 {
			summary := strings.TrimSpace(resp.Content)
			_, err := env.Sink.Consume(ctx, ports.AgentOutput{Kind: ports.OutputDone, Summary: summary})
			return err
		}

		for _, call := range calls {
			stop, err := a.emitToolCall(ctx, task, env, call)
			if err != nil || stop {
				return err
			}
		}

		if stop, err := a.emit(ctx, env, ports.AgentOutput{
			Kind: ports.OutputVerbose,
			Text: fmt.Sprintf("iteration %d: ran %d tool call(s)", iteration, len(calls)),
		}); err != nil || stop {
			return err
		}
	}

	_, err = env.Sink.Consume(ctx, ports.AgentOutput{
		Kind:   ports.OutputFailed,
		Reason: fmt.Sprintf("iteration budget of %d exceeded", maxIterations),
	})
	return err
}

func (a *LoopAgent) seedTurns(task ports.TaskView) []ports.Message {
	prompt := a.systemPrompt
	if prompt == "" {
		prompt = "You are a capable assistant working on one task. Use the available tools when they help; respond without tool calls once the task is complete."
	}
	goal := task.Title
	if task.Intent != "" {
		goal = fmt.Sprintf("%s\n\n%s", task.Title, task.Intent)
	}
	return []ports.Message{
		{Role: ports.RoleSystem, Content: prompt, Source: ports.MessageSourceSystemPrompt},
		{Role: ports.RoleUser, Content: goal, Source: ports.MessageSourceUserInput},
	}
}

// injectInstructions appends queued steering messages that were added since
// the last drive. Consumed instructions are recognized by counting the
// instruction-source turns already persisted.
func (a *LoopAgent) injectInstructions(ctx context.Context, env ports.ExecutionEnv, history []ports.Message) error {
	if len(env.Instructions) == 0 {
		return nil
	}
	consumed := 0
	for _, msg := range history {
		if msg.Source == ports.MessageSourceInstruction {
			consumed++
		}
	}
	if consumed >= len(env.Instructions) {
		return nil
	}
	for _, text := range env.Instructions[consumed:] {
		turn := ports.Message{Role: ports.RoleUser, Content: text, Source: ports.MessageSourceInstruction}
		if err := env.Conversation.Append(ctx, turn); err != nil {
			return fmt.Errorf("inject instruction: %w", err)
		}
	}
	return nil
}

func (a *LoopAgent) emit(ctx context.Context, env ports.ExecutionEnv, out ports.AgentOutput) (bool, error) {
	directive, err := env.Sink.Consume(ctx, out)
	if err != nil {
		return true, err
	}
	return directive == ports.SinkStop, nil
}

func (a *LoopAgent) emitToolCall(ctx context.Context, task ports.TaskView, env ports.ExecutionEnv, call ports.ToolCall) (bool, error) {
	call.TaskID = task.TaskID
	call.ParentTaskID = task.ParentTaskID
	return a.emit(ctx, env, ports.AgentOutput{Kind: ports.OutputToolCall, Call: &call})
}
