// Package id produces the identifiers used across the engine. Identifiers
// are prefixed for display ("task_...", "interaction_...") and time-ordered
// so log files and directories sort chronologically.
package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Strategy identifies the identifier generation algorithm to use.
type Strategy int

const (
	// StrategyKSUID generates lexicographically sortable identifiers using KSUID.
	StrategyKSUID Strategy = iota
	// StrategyUUIDv7 generates time-ordered identifiers using UUID version 7.
	StrategyUUIDv7
)

var defaultGenerator = &Generator{strategy: StrategyKSUID}

// Generator produces identifiers for tasks, interactions, and tool calls.
type Generator struct {
	mu       sync.RWMutex
	strategy Strategy
}

// SetStrategy configures the generation strategy for the default generator.
func SetStrategy(strategy Strategy) {
	defaultGenerator.mu.Lock()
	defaultGenerator.strategy = strategy
	defaultGenerator.mu.Unlock()
}

// NewTaskID generates a new task identifier with a stable prefix for display.
func NewTaskID() string {
	return defaultGenerator.newIdentifier("task")
}

// NewInteractionID generates an identifier for a pending user interaction.
func NewInteractionID() string {
	return defaultGenerator.newIdentifier("interaction")
}

// NewToolCallID generates an identifier for a synthesized tool call.
func NewToolCallID() string {
	return defaultGenerator.newIdentifier("call")
}

func (g *Generator) newIdentifier(prefix string) string {
	g.mu.RLock()
	strategy := g.strategy
	g.mu.RUnlock()

	switch strategy {
	case StrategyUUIDv7:
		v7, err := uuid.NewV7()
		if err != nil {
			// NewV7 only fails when the entropy source does; KSUID keeps working.
			return fmt.Sprintf("%s_%s", prefix, ksuid.New().String())
		}
		return fmt.Sprintf("%s_%s", prefix, v7.String())
	default:
		return fmt.Sprintf("%s_%s", prefix, ksuid.New().String())
	}
}
