// Package runtime drives tasks: it resolves the task's agent, assembles the
// execution environment, consumes the agent's output sequence, gates risky
// tool calls behind user interactions, and coordinates subtask fork-join
// rounds. All task state changes flow through the event store.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	agentreg "otto/internal/agent"
	"otto/internal/agent/ports"
	"otto/internal/conversation"
	"otto/internal/eventstore"
	"otto/internal/task"
	"otto/internal/tools"
)

var (
	// ErrDriveInFlight is returned when executeTask is called for a task
	// that is already being driven by this process.
	ErrDriveInFlight = fmt.Errorf("task drive already in flight")

	// ErrNoPendingInteraction is returned when a response arrives for a
	// task with no open interaction.
	ErrNoPendingInteraction = fmt.Errorf("no pending interaction")
)

const (
	defaultMaxSubtaskDepth   = 2
	defaultMaxSubtaskWorkers = 4
)

// OutputObserver receives the non-terminal outputs of a drive as they
// happen (text, reasoning, verbose, error). Used by front ends to stream
// progress; the runtime itself never depends on observers.
type OutputObserver func(taskID string, out ports.AgentOutput)

// Options assemble a Manager.
type Options struct {
	Tasks         *task.Service
	Agents        *agentreg.Registry
	Registry      *tools.Registry
	Executor      *tools.Executor
	Conversations *conversation.Manager
	LLM           ports.StreamingLLMClient
	Logger        ports.Logger
	Clock         ports.Clock

	// Profile overrides the agent's own model profile when non-empty.
	Profile string
	// MaxIterations caps iterations per drive; 0 keeps each agent's own cap.
	MaxIterations int

	MaxSubtaskDepth   int
	MaxSubtaskWorkers int

	Metrics *Metrics
}

// Manager is the orchestration entry point. One Manager serves one event
// store; concurrent drives of different tasks are fine, concurrent drives
// of the same task are rejected.
type Manager struct {
	tasks         *task.Service
	agents        *agentreg.Registry
	registry      *tools.Registry
	executor      *tools.Executor
	conversations *conversation.Manager
	llm           ports.StreamingLLMClient
	logger        ports.Logger
	clock         ports.Clock
	tracer        trace.Tracer
	metrics       *Metrics

	profile           string
	maxIterations     int
	maxSubtaskDepth   int
	maxSubtaskWorkers int

	mu        sync.Mutex
	inFlight  map[string]bool
	observers []OutputObserver
}

// NewManager wires a Manager.
func NewManager(opts Options) *Manager {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = defaultMetrics()
	}
	maxDepth := opts.MaxSubtaskDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxSubtaskDepth
	}
	maxWorkers := opts.MaxSubtaskWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxSubtaskWorkers
	}
	clock := opts.Clock
	if clock == nil {
		clock = ports.RealClock()
	}
	return &Manager{
		tasks:             opts.Tasks,
		agents:            opts.Agents,
		registry:          opts.Registry,
		executor:          opts.Executor,
		conversations:     opts.Conversations,
		llm:               opts.LLM,
		logger:            ports.OrNop(opts.Logger),
		clock:             clock,
		tracer:            otel.Tracer("otto/runtime"),
		metrics:           metrics,
		profile:           opts.Profile,
		maxIterations:     opts.MaxIterations,
		maxSubtaskDepth:   maxDepth,
		maxSubtaskWorkers: maxWorkers,
		inFlight:          make(map[string]bool),
	}
}

// Tasks exposes the task service for front ends sharing this manager.
func (m *Manager) Tasks() *task.Service { return m.tasks }

// RegisterAgent adds an agent implementation to the roster.
func (m *Manager) RegisterAgent(a ports.Agent) error {
	return m.agents.Register(a)
}

// Observe registers an output observer. Not safe to call concurrently with
// running drives; register observers during setup.
func (m *Manager) Observe(fn OutputObserver) {
	m.observers = append(m.observers, fn)
}

func (m *Manager) notify(taskID string, out ports.AgentOutput) {
	for _, fn := range m.observers {
		fn(taskID, out)
	}
}

// ExecutionResult reports where one drive left the task and which events it
// appended.
type ExecutionResult struct {
	TaskID string
	Status task.Status
	Events []eventstore.StoredEvent
}

// drive is the per-ExecuteTask mutable context shared between the manager
// and its output handler.
type drive struct {
	task   *task.Task
	events []eventstore.StoredEvent
}

func (m *Manager) append(ctx context.Context, d *drive, eventType string, payload any) error {
	stored, err := m.tasks.Store().Append(ctx, d.task.TaskID, []eventstore.Event{{Type: eventType, Payload: payload}})
	if err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	d.events = append(d.events, stored...)
	return nil
}

// ExecuteTask synchronously drives one task until it rests: terminal,
// awaiting_user, paused, or out of iteration budget. Driving a terminal
// task is an idempotent no-op. Re-entrant drives of the same task return
// ErrDriveInFlight.
func (m *Manager) ExecuteTask(ctx context.Context, taskID string) (*ExecutionResult, error) {
	m.mu.Lock()
	if m.inFlight[taskID] {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", taskID, ErrDriveInFlight)
	}
	m.inFlight[taskID] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, taskID)
		m.mu.Unlock()
	}()

	t, err := m.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		m.logger.Debug("Drive of terminal task %s (%s) is a no-op", taskID, t.Status)
		return &ExecutionResult{TaskID: taskID, Status: t.Status}, nil
	}
	if t.Status == task.StatusPaused {
		return &ExecutionResult{TaskID: taskID, Status: t.Status}, nil
	}

	runner, err := m.agents.Resolve(t.AgentID)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}

	ctx, span := m.tracer.Start(ctx, "runtime.ExecuteTask",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.id", t.AgentID),
		))
	defer span.End()

	m.metrics.drivesActive.Inc()
	defer m.metrics.drivesActive.Dec()
	started := m.clock.Now()

	d := &drive{task: t}

	if t.Status == task.StatusOpen {
		payload := task.TaskStartedPayload{TaskID: taskID, AgentID: t.AgentID}
		if err := m.append(ctx, d, task.EventTaskStarted, payload); err != nil {
			return nil, err
		}
		t.Status = task.StatusInProgress
	}

	if t.Status == task.StatusAwaitingUser {
		pending, err := m.tasks.PendingInteraction(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			// Still waiting on the user; nothing to drive.
			return m.finish(ctx, d, started)
		}
	}

	if err := m.settleRespondedCalls(ctx, d); err != nil {
		return nil, err
	}

	handler := m.newOutputHandler(d)
	env, err := m.buildEnv(ctx, t, runner, handler)
	if err != nil {
		return nil, err
	}
	handler.allow(env.Tools)

	m.logger.Info("Driving task %s with agent %s", taskID, t.AgentID)
	if err := runner.Run(ctx, t.View(), env); err != nil {
		// Infrastructure failure: the task stays resumable in its
		// current status, nothing terminal is recorded.
		m.metrics.observeDrive("error", m.clock.Now().Sub(started))
		return nil, fmt.Errorf("agent %s on task %s: %w", t.AgentID, taskID, err)
	}

	return m.finish(ctx, d, started)
}

func (m *Manager) finish(ctx context.Context, d *drive, started time.Time) (*ExecutionResult, error) {
	t, err := m.tasks.GetTask(ctx, d.task.TaskID)
	if err != nil {
		return nil, err
	}
	m.metrics.observeDrive(string(t.Status), m.clock.Now().Sub(started))
	return &ExecutionResult{TaskID: t.TaskID, Status: t.Status, Events: d.events}, nil
}

// buildEnv assembles the execution environment for one drive. Tool
// visibility is the agent's declared groups, minus the subtask group for
// child tasks: only top-level tasks may fork.
func (m *Manager) buildEnv(ctx context.Context, t *task.Task, runner ports.Agent, sink ports.OutputSink) (ports.ExecutionEnv, error) {
	groups := runner.Groups()
	if !t.View().TopLevel() {
		filtered := make([]ports.ToolGroup, 0, len(groups))
		for _, g := range groups {
			if g != ports.GroupSubtask {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}

	state, err := m.tasks.Refresh(ctx)
	if err != nil {
		return ports.ExecutionEnv{}, err
	}
	instructions := make([]string, 0, len(state.Instructions[t.TaskID]))
	for _, ins := range state.Instructions[t.TaskID] {
		instructions = append(instructions, ins.Text)
	}

	return ports.ExecutionEnv{
		LLM:           m.llm,
		Tools:         m.registry.Definitions(groups),
		Conversation:  m.conversations.ForTask(t.TaskID),
		Sink:          sink,
		Profile:       m.profile,
		MaxIterations: m.maxIterations,
		Instructions:  instructions,
		Logger:        m.logger,
		Clock:         m.clock,
	}, nil
}

// settleRespondedCalls writes tool results for gated calls the user has
// answered since the last drive. An accepted call executes now; a rejected
// one gets a rejection tool result without the tool body ever running.
func (m *Manager) settleRespondedCalls(ctx context.Context, d *drive) error {
	taskID := d.task.TaskID
	history, err := m.conversations.History(ctx, taskID)
	if err != nil {
		return err
	}
	pendingCalls := ports.PendingToolCalls(history)
	if len(pendingCalls) == 0 {
		return nil
	}

	responses, err := m.respondedInteractions(ctx, taskID)
	if err != nil {
		return err
	}

	for _, call := range pendingCalls {
		resolved, ok := responses[call.ID]
		if !ok {
			continue
		}
		var result *ports.ToolResult
		if resolved.response.Accepted() {
			execCall := resolved.call
			execCall.TaskID = taskID
			execCall.ParentTaskID = d.task.ParentTaskID
			result = m.executor.Execute(ctx, execCall)
			m.metrics.observeToolCall(execCall.Name, result.IsError)
			m.logger.Info("Approved call %s (%s) on task %s executed", call.ID, call.Name, taskID)
		} else {
			content := fmt.Sprintf("The user declined to run %s. Do not retry this exact action; adjust the approach or finish without it.", call.Name)
			if resolved.response.InputValue != "" {
				content = fmt.Sprintf("%s User note: %s", content, resolved.response.InputValue)
			}
			result = &ports.ToolResult{CallID: call.ID, Content: content}
			m.logger.Info("Rejected call %s (%s) on task %s settled without execution", call.ID, call.Name, taskID)
		}
		turn := ports.Message{
			Role:       ports.RoleTool,
			Content:    result.Content,
			ToolCallID: call.ID,
			IsError:    result.IsError,
		}
		if err := m.conversations.Append(ctx, taskID, turn); err != nil {
			return fmt.Errorf("persist settled tool result: %w", err)
		}
	}
	return nil
}

type respondedCall struct {
	call     ports.ToolCall
	response task.InteractionResponse
}

// respondedInteractions pairs each answered tool-approval interaction on
// the task's stream with its gated call, keyed by tool call ID.
func (m *Manager) respondedInteractions(ctx context.Context, taskID string) (map[string]respondedCall, error) {
	events, err := m.tasks.Store().ReadStream(ctx, taskID, 1)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]*task.UserInteractionRequestedPayload)
	out := make(map[string]respondedCall)
	for _, ev := range events {
		switch ev.Type {
		case task.EventUserInteractionRequested:
			var p task.UserInteractionRequestedPayload
			if err := ev.DecodePayload(&p); err != nil {
				return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
			}
			requested[p.InteractionID] = &p
		case task.EventUserInteractionResponded:
			var p task.UserInteractionRespondedPayload
			if err := ev.DecodePayload(&p); err != nil {
				return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
			}
			req := requested[p.InteractionID]
			if req == nil || req.ToolCall == nil {
				continue
			}
			out[req.ToolCall.ID] = respondedCall{
				call:     *req.ToolCall,
				response: task.InteractionResponse{SelectedOptionID: p.SelectedOptionID, InputValue: p.InputValue},
			}
		}
	}
	return out, nil
}

// GetPendingInteraction returns the open interaction for a task, or nil.
func (m *Manager) GetPendingInteraction(ctx context.Context, taskID string) (*task.PendingInteraction, error) {
	return m.tasks.PendingInteraction(ctx, taskID)
}

// RespondToInteraction records the user's answer to a pending interaction.
// The task moves back to in_progress; the answer takes effect on the next
// ExecuteTask drive.
func (m *Manager) RespondToInteraction(ctx context.Context, taskID, interactionID string, resp task.InteractionResponse) error {
	pending, err := m.tasks.PendingInteraction(ctx, taskID)
	if err != nil {
		return err
	}
	if pending == nil {
		return fmt.Errorf("task %s: %w", taskID, ErrNoPendingInteraction)
	}
	if pending.InteractionID != interactionID {
		return fmt.Errorf("interaction %s is not pending on task %s (open: %s)", interactionID, taskID, pending.InteractionID)
	}

	payload := task.UserInteractionRespondedPayload{
		InteractionID:    interactionID,
		TaskID:           taskID,
		SelectedOptionID: resp.SelectedOptionID,
		InputValue:       resp.InputValue,
	}
	if _, err := m.tasks.Store().Append(ctx, taskID, []eventstore.Event{{Type: task.EventUserInteractionResponded, Payload: payload}}); err != nil {
		return fmt.Errorf("append %s: %w", task.EventUserInteractionResponded, err)
	}
	m.logger.Info("Interaction %s on task %s answered with %q", interactionID, taskID, resp.SelectedOptionID)
	return nil
}
