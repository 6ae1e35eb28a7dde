package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// ProcessAdapter spawns an external command per call, writing inputs as JSON
// to stdin and reading outputs as JSON from stdout; a non-zero exit is a
// failure. Command and Args come from ToolInput.Config's "__command"/"__args"
// keys, set by the runner from RuntimeSpec.
type ProcessAdapter struct{}

// NewProcessAdapter returns a process adapter.
func NewProcessAdapter() *ProcessAdapter {
	return &ProcessAdapter{}
}

// Invoke spawns the configured command and exchanges the JSON stdin/stdout
// contract described by the gateway's process runtime variant.
func (a *ProcessAdapter) Invoke(ctx context.Context, in ToolInput) (ToolOutput, error) {
	command, _ := in.Config["__command"].(string)
	if command == "" {
		return ToolOutput{}, fmt.Errorf("gateway: process adapter requires a command")
	}
	var args []string
	if raw, ok := in.Config["__args"].([]string); ok {
		args = raw
	}

	payload, err := json.Marshal(in.Inputs)
	if err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: marshaling process inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: process %s exited: %w: %s", command, err, stderr.String())
	}

	var outputs map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &outputs); err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: decoding process stdout: %w", err)
	}
	return ToolOutput{Outputs: outputs}, nil
}
