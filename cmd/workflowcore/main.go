// Command workflowcore compiles prompts into workflow specs, runs them
// against the execution gateway, and manages the pack registry, trace
// store, and cron scheduler backing those operations.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/windrun-ai/workflowcore/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "workflowcore",
	Short: "workflowcore workflow compiler and runner CLI",
	Long:  "workflowcore — compile prompts into tool-call graphs, run them under policy and budget control, and inspect the results.",
	// SilenceUsage prevents printing usage on every error.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("workflowcore version %s\n", version))

	rootCmd.AddCommand(cli.NewCompileCmd())
	rootCmd.AddCommand(cli.NewRunCmd())
	rootCmd.AddCommand(cli.NewToolsCmd())
	rootCmd.AddCommand(cli.NewPacksCmd())
	rootCmd.AddCommand(cli.NewTracesCmd())
	rootCmd.AddCommand(cli.NewDaemonCmd())
}
