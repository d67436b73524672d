package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/agent/domain"
	"otto/internal/agent/ports"
)

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(domain.New(domain.Config{ID: "assistant"})))

	a, err := r.Resolve("assistant")
	require.NoError(t, err)
	assert.Equal(t, "assistant", a.ID())

	_, err = r.Resolve("ghost")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	assert.Error(t, r.Register(domain.New(domain.Config{ID: "assistant"})))
	assert.Error(t, r.Register(domain.New(domain.Config{})))
	assert.ElementsMatch(t, []string{"assistant"}, r.IDs())
}

func TestDefaultPresetsBuild(t *testing.T) {
	presets := DefaultPresets()
	require.NotEmpty(t, presets)

	ids := make(map[string][]ports.ToolGroup)
	for _, p := range presets {
		agent := p.Build()
		ids[agent.ID()] = agent.Groups()
	}
	require.Contains(t, ids, "assistant")
	require.Contains(t, ids, "researcher")
	assert.Contains(t, ids["assistant"], ports.GroupSubtask)
	assert.NotContains(t, ids["researcher"], ports.GroupSubtask)
}

func TestLoadPresetsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agents:
  - id: coder
    profile: strong
    system_prompt: "You write code."
    max_iterations: 20
    groups: [search, edit, exec]
  - id: reviewer
    groups: [search]
`), 0o644))

	presets, err := LoadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "coder", presets[0].ID)
	assert.Equal(t, 20, presets[0].MaxIterations)
	assert.Equal(t, []string{"search"}, presets[1].Groups)

	agent := presets[0].Build()
	assert.Equal(t, "coder", agent.ID())
	assert.Contains(t, agent.Groups(), ports.GroupExec)
}

func TestLoadPresetsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents:\n  - profile: x\n"), 0o644))

	_, err := LoadPresets(path)
	assert.ErrorContains(t, err, "no id")

	_, err = LoadPresets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
