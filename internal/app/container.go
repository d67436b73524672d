// Package app wires the engine's components into one container the way a
// front end consumes them. Construction order matters only in that the
// runtime manager must exist before the subtask tools, which call back
// into it.
package app

import (
	"fmt"
	"path/filepath"
	"time"

	agentreg "otto/internal/agent"
	"otto/internal/agent/ports"
	"otto/internal/audit"
	"otto/internal/config"
	"otto/internal/conversation"
	"otto/internal/eventstore"
	"otto/internal/eventstore/filestore"
	"otto/internal/llm"
	"otto/internal/runtime"
	"otto/internal/task"
	"otto/internal/tools"
	"otto/internal/tools/builtin"
	"otto/internal/utils"
	"otto/internal/workspace"
)

const defaultCommandTimeout = 2 * time.Minute

// Container holds the wired engine.
type Container struct {
	Config        *config.Config
	Store         eventstore.Store
	Tasks         *task.Service
	Conversations *conversation.Manager
	Audit         *audit.Log
	Workspace     *workspace.Resolver
	Registry      *tools.Registry
	Agents        *agentreg.Registry
	Runtime       *runtime.Manager
	Logger        ports.Logger
}

// Build assembles the engine over the given LLM client. The client may be
// plain or streaming; a plain one is wrapped with the streaming fallback.
func Build(cfg *config.Config, client ports.LLMClient) (*Container, error) {
	utils.SetGlobalLevel(utils.ParseLevel(cfg.LogLevel))
	logger := utils.NewComponentLogger("App")

	store, err := filestore.Open(filepath.Join(cfg.DataDir, "events"))
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	convStore, err := conversation.NewFileStore(filepath.Join(cfg.DataDir, "conversations"))
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	auditLog, err := audit.Open(filepath.Join(cfg.DataDir, "audit.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	ws, err := workspace.NewResolver(cfg.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	tasks := task.NewService(store, utils.NewComponentLogger("Task"))
	conversations := conversation.NewManager(convStore, utils.NewComponentLogger("Conversation"))
	registry := tools.NewRegistry()
	executor := tools.NewExecutor(registry, auditLog, utils.NewComponentLogger("Tools"))
	agents := agentreg.NewRegistry()

	manager := runtime.NewManager(runtime.Options{
		Tasks:             tasks,
		Agents:            agents,
		Registry:          registry,
		Executor:          executor,
		Conversations:     conversations,
		LLM:               llm.EnsureStreaming(client),
		Logger:            utils.NewComponentLogger("Runtime"),
		Profile:           cfg.Profile,
		MaxIterations:     cfg.MaxIterations,
		MaxSubtaskDepth:   cfg.MaxSubtaskDepth,
		MaxSubtaskWorkers: cfg.MaxSubtaskWorkers,
	})

	if err := registerBuiltinTools(registry, ws, manager); err != nil {
		return nil, err
	}
	if err := registerAgents(agents, cfg.PresetsPath); err != nil {
		return nil, err
	}

	return &Container{
		Config:        cfg,
		Store:         store,
		Tasks:         tasks,
		Conversations: conversations,
		Audit:         auditLog,
		Workspace:     ws,
		Registry:      registry,
		Agents:        agents,
		Runtime:       manager,
		Logger:        logger,
	}, nil
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	if c.Audit != nil {
		return c.Audit.Close()
	}
	return nil
}

func registerBuiltinTools(registry *tools.Registry, ws *workspace.Resolver, coordinator ports.SubtaskCoordinator) error {
	executors := []ports.ToolExecutor{
		builtin.NewReadFile(ws),
		builtin.NewListFiles(ws),
		builtin.NewSearchText(ws),
		builtin.NewWriteFile(ws),
		builtin.NewEditFile(ws),
		builtin.NewRunCommand(ws, defaultCommandTimeout),
		builtin.NewCreateSubtasks(coordinator),
		builtin.NewListSubtask(coordinator),
	}
	for _, tool := range executors {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}
	return nil
}

func registerAgents(agents *agentreg.Registry, presetsPath string) error {
	presets := agentreg.DefaultPresets()
	if presetsPath != "" {
		loaded, err := agentreg.LoadPresets(presetsPath)
		if err != nil {
			return fmt.Errorf("load agent presets: %w", err)
		}
		presets = loaded
	}
	for _, preset := range presets {
		if err := agents.Register(preset.Build()); err != nil {
			return fmt.Errorf("register agent %s: %w", preset.ID, err)
		}
	}
	return nil
}
