// Package builtin provides the engine's stock tools. Safe tools execute
// inline; risky tools (writeFile, editFile, runCommand) are gated behind a
// user confirmation by the output handler before their body ever runs.
package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"otto/internal/agent/ports"
	"otto/internal/workspace"
)

func stringArg(call ports.ToolCall, name string) (string, bool) {
	v, ok := call.Arguments[name].(string)
	return v, ok
}

type readFile struct {
	ws *workspace.Resolver
}

// NewReadFile reads file contents from the workspace. Safe, always visible.
func NewReadFile(ws *workspace.Resolver) ports.ToolExecutor {
	return &readFile{ws: ws}
}

func (t *readFile) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: "readFile", Version: "1.0.0", Risk: ports.RiskSafe, Group: ports.GroupNone}
}

func (t *readFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "readFile",
		Description: "Read the contents of a file in the workspace",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "File path, optionally prefixed with private:/, shared:/ or public:/"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *readFile) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, _ := stringArg(call, "path")
	resolved, err := t.ws.Resolve(path)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("read %s: %v", path, err), IsError: true}, nil
	}
	return &ports.ToolResult{Content: string(content)}, nil
}

type listFiles struct {
	ws *workspace.Resolver
}

// NewListFiles lists a workspace directory. Safe, always visible.
func NewListFiles(ws *workspace.Resolver) ports.ToolExecutor {
	return &listFiles{ws: ws}
}

func (t *listFiles) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: "listFiles", Version: "1.0.0", Risk: ports.RiskSafe, Group: ports.GroupNone}
}

func (t *listFiles) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "listFiles",
		Description: "List the entries of a workspace directory",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "Directory path; defaults to the private workspace root"},
			},
		},
	}
}

func (t *listFiles) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := stringArg(call, "path")
	if !ok || path == "" {
		path = workspace.PrefixPrivate
	}
	resolved, err := t.ws.Resolve(path)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("list %s: %v", path, err), IsError: true}, nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return &ports.ToolResult{Content: strings.Join(names, "\n")}, nil
}

type writeFile struct {
	ws *workspace.Resolver
}

// NewWriteFile writes a whole file. Risky: gated behind user confirmation.
func NewWriteFile(ws *workspace.Resolver) ports.ToolExecutor {
	return &writeFile{ws: ws}
}

func (t *writeFile) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: "writeFile", Version: "1.0.0", Risk: ports.RiskRisky, Group: ports.GroupEdit}
}

func (t *writeFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "writeFile",
		Description: "Create or overwrite a file with the given content",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":    {Type: "string", Description: "File path"},
				"content": {Type: "string", Description: "Full file content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *writeFile) CanExecute(ctx context.Context, call ports.ToolCall) error {
	path, _ := stringArg(call, "path")
	_, err := t.ws.Resolve(path)
	return err
}

func (t *writeFile) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, _ := stringArg(call, "path")
	content, _ := stringArg(call, "content")
	resolved, err := t.ws.Resolve(path)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("write %s: %v", path, err), IsError: true}, nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("write %s: %v", path, err), IsError: true}, nil
	}
	return &ports.ToolResult{Content: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}
