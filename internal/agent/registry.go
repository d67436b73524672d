// Package agent manages the pluggable agent implementations the runtime
// resolves by id, plus the YAML presets that declare them.
package agent

import (
	"fmt"
	"sync"

	"otto/internal/agent/ports"
)

// ErrUnknownAgent is returned when no agent is registered for an id.
var ErrUnknownAgent = fmt.Errorf("unknown agent")

// Registry maps agent ids to implementations. It is populated at startup
// and read-mostly afterwards.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]ports.Agent
}

// NewRegistry returns an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]ports.Agent)}
}

// Register adds an agent, rejecting duplicate ids.
func (r *Registry) Register(a ports.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID() == "" {
		return fmt.Errorf("agent has no id")
	}
	if _, exists := r.agents[a.ID()]; exists {
		return fmt.Errorf("agent already registered: %s", a.ID())
	}
	r.agents[a.ID()] = a
	return nil
}

// Resolve returns the agent registered under id.
func (r *Registry) Resolve(id string) (ports.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownAgent)
	}
	return a, nil
}

// IDs lists the registered agent ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}
