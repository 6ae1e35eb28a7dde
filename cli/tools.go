package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewToolsCmd creates the "tools" command group: list, get, and
// search-by-capability against the workspace's tool registry.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool registry",
	}
	addPersistentConfigFlag(cmd)
	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsGetCmd())
	cmd.AddCommand(newToolsSearchCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return printToolsJSON(cmd, app.Registry.List())
		},
	}
	return cmd
}

func newToolsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <ref>",
		Short: "Print one tool's interface by ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			tool, err := app.Registry.Get(args[0])
			if err != nil {
				return exitError(exitNotFound, "%v", err)
			}
			return printToolsJSON(cmd, []any{tool})
		},
	}
}

func newToolsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <capability>",
		Short: "List tools declaring a capability tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return printToolsJSON(cmd, app.Registry.SearchByCapability(args[0]))
		},
	}
}

func printToolsJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "marshaling tools: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
