// Package tools implements the tool registry and the validated, audited
// execution path every tool call flows through.
package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"otto/internal/agent/ports"
)

const definitionCacheSize = 64

// Registry is the process-wide tool registry. It is populated once at
// startup and read-mostly afterwards; definition lists per group set are
// memoized in a small LRU because they are rebuilt on every agent drive.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ports.ToolExecutor
	defs  *lru.Cache[string, []ports.ToolDefinition]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	cache, _ := lru.New[string, []ports.ToolDefinition](definitionCacheSize)
	return &Registry{
		tools: make(map[string]ports.ToolExecutor),
		defs:  cache,
	}
}

// Register adds a tool, rejecting duplicate names.
func (r *Registry) Register(tool ports.ToolExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.tools[name] = tool
	r.defs.Purge()
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (ports.ToolExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// Definitions returns the definitions of every tool whose group is in the
// allowed set, plus all group-less tools, sorted by name.
func (r *Registry) Definitions(groups []ports.ToolGroup) []ports.ToolDefinition {
	key := cacheKey(groups)
	if defs, ok := r.defs.Get(key); ok {
		return defs
	}

	allowed := make(map[ports.ToolGroup]bool, len(groups))
	for _, g := range groups {
		allowed[g] = true
	}

	r.mu.RLock()
	defs := make([]ports.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		group := tool.Metadata().Group
		if group == ports.GroupNone || allowed[group] {
			defs = append(defs, tool.Definition())
		}
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	r.defs.Add(key, defs)
	return defs
}

func cacheKey(groups []ports.ToolGroup) string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, string(g))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
