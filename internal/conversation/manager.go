package conversation

import (
	"context"
	"encoding/json"

	"otto/internal/agent/ports"
	tokenutil "otto/internal/shared/token"
)

// Manager hands out per-task conversation access and accounts context size.
type Manager struct {
	store  Store
	logger ports.Logger
}

// NewManager wraps a turn store.
func NewManager(store Store, logger ports.Logger) *Manager {
	return &Manager{store: store, logger: ports.OrNop(logger)}
}

// ForTask binds the store to one task id as the persistence callback an
// agent drive receives.
func (m *Manager) ForTask(taskID string) ports.ConversationAccess {
	return &taskConversation{manager: m, taskID: taskID}
}

// History returns a task's full ordered turn history.
func (m *Manager) History(ctx context.Context, taskID string) ([]ports.Message, error) {
	return m.store.History(ctx, taskID)
}

// Append persists turns for a task in order.
func (m *Manager) Append(ctx context.Context, taskID string, turns ...ports.Message) error {
	return m.store.Append(ctx, taskID, turns...)
}

// TokenCount estimates the prompt size of a message history.
func (m *Manager) TokenCount(messages []ports.Message) int {
	total := 0
	for _, msg := range messages {
		total += tokenutil.CountTokens(msg.Content)
		total += tokenutil.CountTokens(msg.Reasoning)
		for _, call := range msg.ToolCalls {
			total += tokenutil.CountTokens(call.Name)
			if len(call.Arguments) > 0 {
				if raw, err := json.Marshal(call.Arguments); err == nil {
					total += tokenutil.CountTokens(string(raw))
				}
			}
		}
		// Per-message framing overhead.
		total += 4
	}
	return total
}

type taskConversation struct {
	manager *Manager
	taskID  string
}

func (c *taskConversation) History(ctx context.Context) ([]ports.Message, error) {
	return c.manager.History(ctx, c.taskID)
}

func (c *taskConversation) Append(ctx context.Context, turns ...ports.Message) error {
	return c.manager.Append(ctx, c.taskID, turns...)
}

func (c *taskConversation) TokenCount(messages []ports.Message) int {
	return c.manager.TokenCount(messages)
}
