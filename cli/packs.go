package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPacksCmd creates the "packs" command group: loading a pack directory's
// tools, templates, and composites into the workspace's registry.
func NewPacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Load and inspect pack directories",
	}
	addPersistentConfigFlag(cmd)
	cmd.AddCommand(newPacksLoadCmd())
	return cmd
}

func newPacksLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Scan a pack directory and report what was registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tools, err := app.Registry.ScanPacks(dir, app.Logger)
			if err != nil {
				return exitError(exitRuntime, "scanning packs: %v", err)
			}
			templates, err := app.Registry.ScanPackTemplates(dir, app.Templates, app.Logger)
			if err != nil {
				return exitError(exitRuntime, "scanning templates: %v", err)
			}
			composites, err := app.Registry.ScanPackComposites(dir, app.Composites, app.Logger)
			if err != nil {
				return exitError(exitRuntime, "scanning composites: %v", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "registered %d tool(s), %d template(s), %d composite(s) from %s\n",
				tools, templates, composites, dir)
			return nil
		},
	}
}
