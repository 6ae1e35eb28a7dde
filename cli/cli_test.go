package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRoot creates a fresh cobra root wired to every subcommand. Each test
// gets an isolated command tree to avoid shared flag state.
func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "workflowcore", SilenceUsage: true}
	root.AddCommand(NewCompileCmd())
	root.AddCommand(NewRunCmd())
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewPacksCmd())
	root.AddCommand(NewTracesCmd())
	root.AddCommand(NewDaemonCmd())
	return root
}

func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeWorkspace lays out a minimal on-disk workspace: a config file naming
// a pack directory, and one pack contributing a single pure native tool.
func writeWorkspace(t *testing.T) (configPath, dataDir string) {
	t.Helper()
	root := t.TempDir()
	dataDir = filepath.Join(root, "data")
	packsDir := filepath.Join(root, "packs")

	require.NoError(t, os.MkdirAll(filepath.Join(packsDir, "demo"), 0o755))
	manifest := `{
		"manifest_version": "1.0",
		"pack": {"id": "demo", "name": "Demo"},
		"tools": [
			{"tool": {
				"ref": "demo/echo@1.0.0",
				"side_effect": "pure",
				"runtime": {"variant": "native", "handler_id": "echo"},
				"inputs": [{"name": "text", "type": "string"}],
				"outputs": [{"name": "result", "type": "string"}]
			}}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(packsDir, "demo", "manifest.json"), []byte(manifest), 0o644))

	configPath = filepath.Join(root, "workflowcore.yaml")
	configYAML := "workspace_id: test\n" +
		"pack_dirs:\n  - " + packsDir + "\n" +
		"cache_backend: memory\n" +
		"data_dir: " + dataDir + "\n" +
		"trace_db_path: " + filepath.Join(dataDir, "traces.db") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o644))
	return configPath, dataDir
}

func TestToolsList_PrintsRegisteredTool(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	root := newTestRoot()
	stdout, _, err := executeCommand(root, "tools", "list", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "demo/echo@1.0.0")
}

func TestToolsGet_UnknownRefReturnsNotFoundExitCode(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	root := newTestRoot()
	_, _, err := executeCommand(root, "tools", "get", "nope/nope@1.0.0", "--config", configPath)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitNotFound, exitErr.Code)
}

func TestPacksLoad_ReportsCounts(t *testing.T) {
	root := t.TempDir()
	packsDir := filepath.Join(root, "extra")
	require.NoError(t, os.MkdirAll(filepath.Join(packsDir, "textkit"), 0o755))
	manifest := `{
		"manifest_version": "1.0",
		"pack": {"id": "textkit", "name": "Text Kit"},
		"tools": [
			{"tool": {"ref": "textkit/upper@1.0.0", "side_effect": "pure", "runtime": {"variant": "native", "handler_id": "upper"}}}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(packsDir, "textkit", "manifest.json"), []byte(manifest), 0o644))

	configPath, _ := writeWorkspace(t)
	cliRoot := newTestRoot()
	stdout, _, err := executeCommand(cliRoot, "packs", "load", packsDir, "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "registered 1 tool(s)")
}

func TestRun_ExecutesCompiledWorkflowSpec(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	specPath := filepath.Join(t.TempDir(), "wf.json")
	spec := map[string]any{
		"id":       "wf-cli",
		"metadata": map[string]any{"name": "CLI Workflow", "version": "1.0.0"},
		"nodes": []map[string]any{
			{"id": "a", "kind": "primitive", "tool_ref": "demo/echo@1.0.0"},
		},
	}
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(specPath, data, 0o644))

	root := newTestRoot()
	stdout, _, err := executeCommand(root, "run", specPath, "--config", configPath, "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wf-cli")
}

func TestRun_MissingFileReturnsFileNotFoundExitCode(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	root := newTestRoot()
	_, _, err := executeCommand(root, "run", "/nonexistent/wf.json", "--config", configPath)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitFileNotFound, exitErr.Code)
}

func TestDaemonTrigger_RunsScheduledWorkflow(t *testing.T) {
	configPath, dataDir := writeWorkspace(t)

	specPath := filepath.Join(t.TempDir(), "wf.json")
	spec := map[string]any{
		"id":       "wf-sched",
		"metadata": map[string]any{"name": "Scheduled Workflow", "version": "1.0.0"},
		"nodes": []map[string]any{
			{"id": "a", "kind": "primitive", "tool_ref": "demo/echo@1.0.0"},
		},
	}
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(specPath, data, 0o644))
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	root := newTestRoot()
	_, _, err = executeCommand(root, "daemon", "schedule-add", "sched-1", specPath, "* * * * *", "--config", configPath)
	require.NoError(t, err)

	stdout, _, err := executeCommand(newTestRoot(), "daemon", "trigger", "sched-1", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "schedule sched-1 ran")
}
