package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"otto/internal/agent/ports"
	"otto/internal/app"
	"otto/internal/config"
	"otto/internal/llm"
	"otto/internal/task"
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	statusColor = color.New(color.FgCyan)
	errorColor  = color.New(color.FgRed, color.Bold)
	okColor     = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

func init() {
	color.NoColor = color.NoColor || !isTTY()
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "otto",
		Short: "Personal assistant task engine",
		Long: `otto accepts tasks, drives LLM-backed agents through tool loops,
gates risky actions behind user confirmation, and records everything
as an append-only event log.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to otto-config.yaml")

	build := func() (*app.Container, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return app.Build(cfg, llm.NewMockClient("mock-model"))
	}

	rootCmd.AddCommand(
		newRunCommand(build),
		newTasksCommand(build),
		newShowCommand(build),
		newRespondCommand(build),
		newCancelCommand(build),
		newPauseCommand(build),
		newResumeCommand(build),
		newInstructCommand(build),
	)
	return rootCmd
}

type buildFunc func() (*app.Container, error)

func newRunCommand(build buildFunc) *cobra.Command {
	var (
		intent   string
		agentID  string
		priority string
	)
	cmd := &cobra.Command{
		Use:   "run <title>",
		Short: "Create a task and drive it until it rests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			ctx := cmd.Context()

			if agentID == "" {
				agentID = container.Config.DefaultAgent
			}
			taskID, err := container.Tasks.CreateTask(ctx, task.CreateTaskRequest{
				Title:     strings.Join(args, " "),
				Intent:    intent,
				AgentID:   agentID,
				Priority:  priority,
				CreatedBy: "cli",
			})
			if err != nil {
				return err
			}
			statusColor.Printf("Created task %s\n", taskID)
			return driveAndReport(ctx, container, taskID)
		},
	}
	cmd.Flags().StringVar(&intent, "intent", "", "Longer description of what the task should achieve")
	cmd.Flags().StringVar(&agentID, "agent", "", "Agent preset to use (default from config)")
	cmd.Flags().StringVar(&priority, "priority", "", "foreground, normal, or background")
	return cmd
}

func newTasksCommand(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List all tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()

			tasks, err := container.Tasks.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				dimColor.Println("No tasks yet.")
				return nil
			}
			for _, t := range tasks {
				indent := ""
				if t.ParentTaskID != "" {
					indent = "  "
				}
				fmt.Printf("%s%-28s  %-13s  %-10s  %s\n", indent, t.TaskID, t.Status, t.AgentID, t.Title)
			}
			return nil
		},
	}
}

func newShowCommand(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task, its pending interaction, and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			ctx := cmd.Context()

			t, err := container.Tasks.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Task:     %s\n", t.TaskID)
			fmt.Printf("Title:    %s\n", t.Title)
			if t.Intent != "" {
				fmt.Printf("Intent:   %s\n", t.Intent)
			}
			fmt.Printf("Agent:    %s\n", t.AgentID)
			fmt.Printf("Status:   %s\n", t.Status)
			fmt.Printf("Priority: %s\n", t.Priority)
			if t.ParentTaskID != "" {
				fmt.Printf("Parent:   %s\n", t.ParentTaskID)
			}
			if t.Summary != "" {
				fmt.Printf("Summary:  %s\n", t.Summary)
			}

			pending, err := container.Runtime.GetPendingInteraction(ctx, t.TaskID)
			if err != nil {
				return err
			}
			if pending != nil {
				fmt.Println()
				statusColor.Printf("Awaiting: %s\n", pending.Display.Title)
				if pending.Display.Description != "" {
					fmt.Println(indentLines(pending.Display.Description, "  "))
				}
				dimColor.Printf("Respond with: otto respond %s accept|reject\n", t.TaskID)
			}

			children, err := container.Runtime.ListSubtasks(ctx, t.TaskID)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				fmt.Println("\nSubtasks:")
				for _, child := range children {
					fmt.Printf("  %-28s  %-10s  %s\n", child.TaskID, child.Status, child.Title)
				}
			}
			return nil
		},
	}
}

func newRespondCommand(build buildFunc) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "respond <task-id> <accept|reject>",
		Short: "Answer a task's pending confirmation and resume it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			ctx := cmd.Context()
			taskID := args[0]

			answer := strings.ToLower(args[1])
			if answer != task.OptionAccept && answer != task.OptionReject {
				return fmt.Errorf("answer must be %q or %q", task.OptionAccept, task.OptionReject)
			}

			pending, err := container.Runtime.GetPendingInteraction(ctx, taskID)
			if err != nil {
				return err
			}
			if pending == nil {
				return fmt.Errorf("task %s has no pending interaction", taskID)
			}
			resp := task.InteractionResponse{SelectedOptionID: answer, InputValue: input}
			if err := container.Runtime.RespondToInteraction(ctx, taskID, pending.InteractionID, resp); err != nil {
				return err
			}
			okColor.Printf("Recorded %s for %s\n", answer, pending.Display.Title)
			return driveAndReport(ctx, container, taskID)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Free-text note attached to the answer")
	return cmd
}

func newCancelCommand(build buildFunc) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			if err := container.Tasks.CancelTask(cmd.Context(), args[0], reason); err != nil {
				return err
			}
			okColor.Printf("Canceled %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the task is being canceled")
	return cmd
}

func newPauseCommand(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <task-id>",
		Short: "Pause a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			if err := container.Tasks.PauseTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			okColor.Printf("Paused %s\n", args[0])
			return nil
		},
	}
}

func newResumeCommand(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <task-id>",
		Short: "Resume a paused task and drive it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			ctx := cmd.Context()
			if err := container.Tasks.ResumeTask(ctx, args[0]); err != nil {
				return err
			}
			return driveAndReport(ctx, container, args[0])
		},
	}
}

func newInstructCommand(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "instruct <task-id> <text>",
		Short: "Queue a steering instruction for a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := build()
			if err != nil {
				return err
			}
			defer container.Close()
			text := strings.Join(args[1:], " ")
			if err := container.Tasks.AddInstruction(cmd.Context(), args[0], text); err != nil {
				return err
			}
			okColor.Printf("Queued instruction for %s\n", args[0])
			return nil
		},
	}
}

// driveAndReport runs one drive with streamed output and prints where the
// task came to rest.
func driveAndReport(ctx context.Context, container *app.Container, taskID string) error {
	container.Runtime.Observe(func(id string, out ports.AgentOutput) {
		if id != taskID {
			return
		}
		switch out.Kind {
		case ports.OutputText:
			fmt.Println(out.Text)
		case ports.OutputReasoning:
			dimColor.Println(out.Text)
		case ports.OutputToolCall:
			if out.Call != nil {
				statusColor.Printf("-> %s\n", out.Call.Name)
			}
		case ports.OutputError:
			errorColor.Printf("error: %s\n", out.Text)
		}
	})

	result, err := container.Runtime.ExecuteTask(ctx, taskID)
	if err != nil {
		return err
	}

	switch result.Status {
	case task.StatusDone:
		okColor.Printf("Task %s done\n", taskID)
	case task.StatusFailed:
		errorColor.Printf("Task %s failed\n", taskID)
	case task.StatusAwaitingUser:
		pending, err := container.Runtime.GetPendingInteraction(ctx, taskID)
		if err != nil {
			return err
		}
		if pending != nil {
			statusColor.Printf("Task %s needs your approval: %s\n", taskID, pending.Display.Title)
			if pending.Display.Description != "" {
				fmt.Println(indentLines(pending.Display.Description, "  "))
			}
			dimColor.Printf("Respond with: otto respond %s accept|reject\n", taskID)
		}
	default:
		statusColor.Printf("Task %s is %s\n", taskID, result.Status)
	}
	return nil
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
