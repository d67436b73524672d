package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"otto/internal/agent/ports"
	"otto/internal/workspace"
)

const (
	searchMatchLimit      = 200
	defaultCommandTimeout = 2 * time.Minute
)

type searchText struct {
	ws *workspace.Resolver
}

// NewSearchText greps workspace files with a regular expression. Safe,
// search group.
func NewSearchText(ws *workspace.Resolver) ports.ToolExecutor {
	return &searchText{ws: ws}
}

func (t *searchText) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: "searchText", Version: "1.0.0", Risk: ports.RiskSafe, Group: ports.GroupSearch}
}

func (t *searchText) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "searchText",
		Description: "Search workspace files for lines matching a regular expression",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"pattern": {Type: "string", Description: "Go regular expression"},
				"path":    {Type: "string", Description: "Directory to search; defaults to the private workspace root"},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *searchText) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	pattern, _ := stringArg(call, "pattern")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("bad pattern: %v", err), IsError: true}, nil
	}

	root, ok := stringArg(call, "path")
	if !ok || root == "" {
		root = workspace.PrefixPrivate
	}
	resolved, err := t.ws.Resolve(root)
	if err != nil {
		return &ports.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	var b strings.Builder
	matches := 0
	walkErr := filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || matches >= searchMatchLimit {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(resolved, path)
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				fmt.Fprintf(&b, "%s:%d: %s\n", rel, i+1, strings.TrimSpace(line))
				matches++
				if matches >= searchMatchLimit {
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return &ports.ToolResult{Content: fmt.Sprintf("search: %v", walkErr), IsError: true}, nil
	}
	if matches == 0 {
		return &ports.ToolResult{Content: "no matches"}, nil
	}
	return &ports.ToolResult{Content: b.String()}, nil
}

type runCommand struct {
	ws      *workspace.Resolver
	timeout time.Duration
}

// NewRunCommand executes a shell command inside the private workspace.
// Risky: gated behind user confirmation.
func NewRunCommand(ws *workspace.Resolver, timeout time.Duration) ports.ToolExecutor {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &runCommand{ws: ws, timeout: timeout}
}

func (t *runCommand) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: "runCommand", Version: "1.0.0", Risk: ports.RiskRisky, Group: ports.GroupExec}
}

func (t *runCommand) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "runCommand",
		Description: "Run a shell command in the private workspace directory",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"command": {Type: "string", Description: "Shell command line"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *runCommand) CanExecute(ctx context.Context, call ports.ToolCall) error {
	command, _ := stringArg(call, "command")
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command is empty")
	}
	return nil
}

func (t *runCommand) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	command, _ := stringArg(call, "command")

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.ws.Root(workspace.PrefixPrivate)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ports.ToolResult{
			Content: fmt.Sprintf("%s\ncommand failed: %v", strings.TrimSpace(string(output)), err),
			IsError: true,
		}, nil
	}
	return &ports.ToolResult{Content: string(output)}, nil
}
