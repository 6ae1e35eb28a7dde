package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanPacks_RegistersInlineAndFileTools(t *testing.T) {
	dir := t.TempDir()
	packDir := filepath.Join(dir, "textkit")

	writeFile(t, filepath.Join(packDir, "manifest.json"), `{
		"manifest_version": "1.0",
		"pack": {"id": "textkit", "name": "Text Kit"},
		"tools": [
			{"tool": {
				"ref": "textkit/uppercase@1.0.0",
				"side_effect": "pure",
				"runtime": {"variant": "native", "handler_id": "uppercase"},
				"inputs": [{"name": "text", "type": "string", "required": true}],
				"outputs": [{"name": "result", "type": "string"}]
			}},
			{"file": "tools/summarize.json"}
		]
	}`)
	writeFile(t, filepath.Join(packDir, "tools", "summarize.json"), `{
		"ref": "textkit/summarize@1.0.0",
		"side_effect": "external_call",
		"runtime": {"variant": "remote", "endpoint": "https://example.invalid/summarize"},
		"inputs": [{"name": "text", "type": "string", "required": true}],
		"outputs": [{"name": "summary", "type": "string"}]
	}`)

	r := New()
	n, err := r.ScanPacks(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, r.Has("textkit/uppercase@1.0.0"))
	assert.True(t, r.Has("textkit/summarize@1.0.0"))
}

func TestScanPacks_SkipsMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken", "manifest.json"), `{ not json`)

	r := New()
	n, err := r.ScanPacks(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScanPacks_SkipsMalformedToolButKeepsPack(t *testing.T) {
	dir := t.TempDir()
	packDir := filepath.Join(dir, "mixed")
	writeFile(t, filepath.Join(packDir, "manifest.json"), `{
		"manifest_version": "1.0",
		"pack": {"id": "mixed", "name": "Mixed"},
		"tools": [
			{"file": "tools/good.json"},
			{"file": "tools/bad.json"}
		]
	}`)
	writeFile(t, filepath.Join(packDir, "tools", "good.json"), `{
		"ref": "mixed/good@1.0.0",
		"side_effect": "pure",
		"runtime": {"variant": "native", "handler_id": "good"}
	}`)
	writeFile(t, filepath.Join(packDir, "tools", "bad.json"), `{"ref": "mixed/bad@1.0.0"}`)

	r := New()
	n, err := r.ScanPacks(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, r.Has("mixed/good@1.0.0"))
	assert.False(t, r.Has("mixed/bad@1.0.0"))
}
