package cli

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/windrun-ai/workflowcore/compiler"
)

// NewCompileCmd creates the "compile" subcommand: it turns a natural-language
// prompt into a WorkflowSpec JSON document.
func NewCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <prompt>",
		Short: "Compile a prompt into a workflow spec",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().Bool("pretty", true, "Pretty-print JSON output")
	cmd.Flags().String("anthropic-api-key", "", "Anthropic API key for the planner fallback (default: ANTHROPIC_API_KEY env var)")
	addPersistentConfigFlag(cmd)
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	prompt := args[0]
	pretty, _ := cmd.Flags().GetBool("pretty")
	outputPath, _ := cmd.Flags().GetString("output")

	app, err := resolveApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	planner, err := resolveCompilePlanner(cmd)
	if err != nil {
		return err
	}

	c := compiler.New(app.Registry, app.Templates, planner)
	spec, err := c.Compile(cmd.Context(), prompt)
	if err != nil {
		if errors.Is(err, compiler.ErrValidation) || errors.Is(err, compiler.ErrNoTemplateMatch) {
			return exitError(exitValidation, "compile failed: %v", err)
		}
		return exitError(exitRuntime, "compile failed: %v", err)
	}

	var out []byte
	if pretty {
		out, err = json.MarshalIndent(spec, "", "  ")
	} else {
		out, err = json.Marshal(spec)
	}
	if err != nil {
		return exitError(exitRuntime, "serializing workflow spec: %v", err)
	}
	out = append(out, '\n')

	if outputPath != "" {
		if err := os.WriteFile(outputPath, out, 0o600); err != nil {
			return exitError(exitRuntime, "writing output file: %v", err)
		}
		return nil
	}
	_, werr := cmd.OutOrStdout().Write(out)
	return werr
}

// resolveCompilePlanner builds the LLM-fallback planner from --anthropic-api-key
// or the ANTHROPIC_API_KEY environment variable. Without either, the compiler
// has no fallback: a prompt matching no template fails with ErrNoTemplateMatch.
func resolveCompilePlanner(cmd *cobra.Command) (compiler.Planner, error) {
	key, _ := cmd.Flags().GetString("anthropic-api-key")
	if strings.TrimSpace(key) == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}
	return compiler.NewAnthropicPlanner(key), nil
}
