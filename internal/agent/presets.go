package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"otto/internal/agent/domain"
	"otto/internal/agent/ports"
)

// Preset declares one agent in a presets file.
type Preset struct {
	ID            string   `yaml:"id"`
	Profile       string   `yaml:"profile"`
	SystemPrompt  string   `yaml:"system_prompt"`
	MaxIterations int      `yaml:"max_iterations"`
	Groups        []string `yaml:"groups"`
}

type presetsFile struct {
	Agents []Preset `yaml:"agents"`
}

// LoadPresets reads agent declarations from a YAML file.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	for i, p := range file.Agents {
		if p.ID == "" {
			return nil, fmt.Errorf("preset %d has no id", i)
		}
	}
	return file.Agents, nil
}

// DefaultPresets returns the stock agent set used when no presets file is
// configured: a general assistant with full capability groups and a
// narrower researcher without durable-state tools.
func DefaultPresets() []Preset {
	return []Preset{
		{
			ID:      "assistant",
			Profile: "default",
			Groups:  []string{"search", "edit", "exec", "subtask"},
		},
		{
			ID:      "researcher",
			Profile: "default",
			Groups:  []string{"search"},
			SystemPrompt: "You are a research assistant. Investigate using the " +
				"available read-only tools and answer with a concise summary.",
		},
	}
}

// Build turns a preset into a runnable loop agent.
func (p Preset) Build() *domain.LoopAgent {
	groups := make([]ports.ToolGroup, 0, len(p.Groups))
	for _, g := range p.Groups {
		groups = append(groups, ports.ToolGroup(g))
	}
	return domain.New(domain.Config{
		ID:            p.ID,
		Groups:        groups,
		SystemPrompt:  p.SystemPrompt,
		Profile:       p.Profile,
		MaxIterations: p.MaxIterations,
	})
}
