package gateway

import "context"

// PythonAdapter invokes a script inside a managed Python environment, reusing
// ProcessAdapter's stdin/stdout JSON contract since the wire protocol is
// identical -- only the interpreter prefix differs.
type PythonAdapter struct {
	process     *ProcessAdapter
	interpreter string
}

// NewPythonAdapter returns a python adapter using "python3" as the default
// interpreter.
func NewPythonAdapter() *PythonAdapter {
	return &PythonAdapter{process: NewProcessAdapter(), interpreter: "python3"}
}

// Invoke prepends the configured interpreter to the script command and
// delegates to the process adapter's JSON stdin/stdout contract.
func (a *PythonAdapter) Invoke(ctx context.Context, in ToolInput) (ToolOutput, error) {
	script, _ := in.Config["__command"].(string)
	args := append([]string{script}, toStringArgs(in.Config["__args"])...)

	delegated := ToolInput{
		ToolRef: in.ToolRef,
		Inputs:  in.Inputs,
		Config: map[string]any{
			"__command": a.interpreter,
			"__args":    args,
		},
	}
	return a.process.Invoke(ctx, delegated)
}

func toStringArgs(v any) []string {
	raw, ok := v.([]string)
	if !ok {
		return nil
	}
	return raw
}
