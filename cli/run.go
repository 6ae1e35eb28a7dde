package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/windrun-ai/workflowcore/core"
)

// NewRunCmd creates the "run" subcommand: it executes a compiled WorkflowSpec
// JSON file to completion and prints the resulting ExecutionRecord.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow.json>",
		Short: "Execute a compiled workflow spec",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().Duration("timeout", 5*time.Minute, "Execution timeout")
	cmd.Flags().String("policy", "", "Path to a JSON file overriding the default policy")
	cmd.Flags().String("format", "pretty", "Output format: json | pretty")
	addPersistentConfigFlag(cmd)
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	spec, err := loadWorkflowSpecArg(filePath)
	if err != nil {
		return err
	}

	app, err := resolveApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	policy, err := resolveRunPolicy(cmd, app.Config.DefaultPolicy)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	executionID := uuid.NewString()
	execCtx := core.NewExecutionContext(executionID, policy, core.NewBudgetTracker(policy.CostLimit))

	record, runErr := app.Runner.Execute(ctx, spec, execCtx)
	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return exitError(exitTimeout, "execution timed out after %s", timeout)
		}
		if record == nil {
			return exitError(exitRuntime, "execution failed: %v", runErr)
		}
	}

	if err := writeRunOutput(cmd, record); err != nil {
		return err
	}
	switch record.Status {
	case core.StatusFailed:
		return exitError(exitRuntime, "workflow %s finished with %d failed node(s)", spec.ID, record.FailedNodes)
	case core.StatusCancelled:
		return exitError(exitRuntime, "workflow %s was cancelled", spec.ID)
	}
	return nil
}

func loadWorkflowSpecArg(path string) (*core.WorkflowSpec, error) {
	// #nosec G304 -- path is a user-supplied CLI argument.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitRuntime, "reading workflow spec: %v", err)
	}
	var spec core.WorkflowSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, exitError(exitInputParse, "parsing workflow spec: %v", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, exitError(exitValidation, "invalid workflow spec: %v", err)
	}
	return &spec, nil
}

func resolveRunPolicy(cmd *cobra.Command, fallback core.Policy) (core.Policy, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		return fallback, nil
	}
	// #nosec G304 -- path is a user-supplied CLI flag.
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Policy{}, exitError(exitFileNotFound, "reading policy file: %v", err)
	}
	var policy core.Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return core.Policy{}, exitError(exitInputParse, "parsing policy file: %v", err)
	}
	return policy, nil
}

func writeRunOutput(cmd *cobra.Command, record *core.ExecutionRecord) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "marshaling execution record: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "execution %s: %s (%d/%d nodes completed, %d failed, %d cache hits)\n",
			record.ExecutionID, record.Status, record.CompletedNodes, record.TotalNodes, record.FailedNodes, record.CacheHitNodes)
	}
	return nil
}
