package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windrun-ai/workflowcore/trace"
)

// NewTracesCmd creates the "traces" command group: querying and exporting
// recorded node spans from the workspace's trace store.
func NewTracesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Query recorded execution traces",
	}
	addPersistentConfigFlag(cmd)
	cmd.AddCommand(newTracesQueryCmd())
	cmd.AddCommand(newTracesExportCmd())
	cmd.AddCommand(newTracesSpanCmd())
	return cmd
}

func newTracesQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <execution-id>",
		Short: "List every span recorded for one execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			spans, err := app.Traces.QuerySpansByExecution(cmd.Context(), args[0])
			if err != nil {
				return exitError(exitRuntime, "querying spans: %v", err)
			}
			return printTracesJSON(cmd, spans)
		},
	}
}

func newTracesSpanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "span <span-id>",
		Short: "Print one recorded span by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			span, found, err := app.Traces.QuerySpan(cmd.Context(), args[0])
			if err != nil {
				return exitError(exitRuntime, "querying span: %v", err)
			}
			if !found {
				return exitError(exitNotFound, "span not found: %s", args[0])
			}
			return printTracesJSON(cmd, span)
		},
	}
}

func newTracesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <execution-id>",
		Short: "Export an execution's spans as a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			spans, err := app.Traces.QuerySpansByExecution(cmd.Context(), args[0])
			if err != nil {
				return exitError(exitRuntime, "querying spans: %v", err)
			}
			out, err := trace.ExportJSON(spans)
			if err != nil {
				return exitError(exitRuntime, "exporting spans: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func printTracesJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "marshaling trace data: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
