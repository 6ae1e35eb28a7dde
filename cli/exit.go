// Package cli assembles workflowcore's cobra subcommands: compiling a prompt
// to a WorkflowSpec, running one to completion, inspecting the tool
// registry, loading packs, and querying recorded traces.
package cli

import "fmt"

// ExitError is an error carrying a specific process exit code. Cobra's RunE
// returns this to signal the desired exit code to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Process exit codes returned by workflowcore subcommands.
const (
	exitSuccess      = 0
	exitValidation   = 1
	exitRuntime      = 2
	exitFileNotFound = 3
	exitInputParse   = 4
	exitProvider     = 5
	exitNotFound     = 6
	exitTimeout      = 10
)
