package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"otto/internal/agent/ports"
	"otto/internal/workspace"
)

type editFile struct {
	ws *workspace.Resolver
}

// NewEditFile replaces an exact text span in a file. Risky: gated behind
// user confirmation with a diff preview.
func NewEditFile(ws *workspace.Resolver) ports.ToolExecutor {
	return &editFile{ws: ws}
}

func (t *editFile) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: "editFile", Version: "1.0.0", Risk: ports.RiskRisky, Group: ports.GroupEdit}
}

func (t *editFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "editFile",
		Description: "Replace an exact text span in a file with new text",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":     {Type: "string", Description: "File path"},
				"old_text": {Type: "string", Description: "Exact text to replace; must occur exactly once"},
				"new_text": {Type: "string", Description: "Replacement text"},
			},
			Required: []string{"path", "old_text", "new_text"},
		},
	}
}

// CanExecute verifies the edit target before any side effect: the file must
// exist and old_text must occur exactly once.
func (t *editFile) CanExecute(ctx context.Context, call ports.ToolCall) error {
	_, content, err := t.load(call)
	if err != nil {
		return err
	}
	oldText, _ := stringArg(call, "old_text")
	switch strings.Count(content, oldText) {
	case 0:
		return fmt.Errorf("old_text not found in file")
	case 1:
		return nil
	default:
		return fmt.Errorf("old_text occurs more than once; provide a larger unique span")
	}
}

func (t *editFile) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	resolved, content, err := t.load(call)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	oldText, _ := stringArg(call, "old_text")
	newText, _ := stringArg(call, "new_text")
	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("edit: %v", err), IsError: true}, nil
	}
	path, _ := stringArg(call, "path")
	return &ports.ToolResult{Content: fmt.Sprintf("edited %s", path)}, nil
}

// Preview renders the pending change for the confirmation display.
func (t *editFile) Preview(ctx context.Context, call ports.ToolCall) (string, error) {
	_, content, err := t.load(call)
	if err != nil {
		return "", err
	}
	oldText, _ := stringArg(call, "old_text")
	newText, _ := stringArg(call, "new_text")
	updated := strings.Replace(content, oldText, newText, 1)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(content, updated, false)
	dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
				b.WriteString("+ " + line + "\n")
			}
		case diffmatchpatch.DiffDelete:
			for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
				b.WriteString("- " + line + "\n")
			}
		}
	}
	return b.String(), nil
}

func (t *editFile) load(call ports.ToolCall) (string, string, error) {
	path, _ := stringArg(call, "path")
	resolved, err := t.ws.Resolve(path)
	if err != nil {
		return "", "", err
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return resolved, string(content), nil
}
