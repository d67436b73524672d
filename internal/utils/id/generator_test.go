package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifiersArePrefixedAndUnique(t *testing.T) {
	taskID := NewTaskID()
	assert.True(t, strings.HasPrefix(taskID, "task_"))
	assert.True(t, strings.HasPrefix(NewInteractionID(), "interaction_"))
	assert.True(t, strings.HasPrefix(NewToolCallID(), "call_"))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTaskID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestUUIDv7Strategy(t *testing.T) {
	SetStrategy(StrategyUUIDv7)
	defer SetStrategy(StrategyKSUID)

	id := NewTaskID()
	assert.True(t, strings.HasPrefix(id, "task_"))
	// UUID form: prefix + 36 chars with hyphens.
	assert.Len(t, strings.TrimPrefix(id, "task_"), 36)
}
