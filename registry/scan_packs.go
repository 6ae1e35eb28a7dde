package registry

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/windrun-ai/workflowcore/core"
)

//go:embed schemas/pack-manifest-v1.json schemas/tool-v1.json
var schemaFiles embed.FS

var (
	packManifestSchema *jsonschema.Schema
	toolSchema         *jsonschema.Schema
)

func init() {
	packManifestSchema = mustCompile("schemas/pack-manifest-v1.json", "https://workflowcore.dev/schemas/pack-manifest/v1.json")
	toolSchema = mustCompile("schemas/tool-v1.json", "https://workflowcore.dev/schemas/tool/v1.json")
}

func mustCompile(path, url string) *jsonschema.Schema {
	raw, err := schemaFiles.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded schema %s missing: %v", path, err))
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("registry: embedded schema %s invalid JSON: %v", path, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		panic(fmt.Sprintf("registry: adding schema resource %s: %v", url, err))
	}
	s, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("registry: compiling schema %s: %v", url, err))
	}
	return s
}

// ScanPacks walks every "<packsDir>/<pack_id>/manifest.json" and registers the
// tools it declares, either inline or loaded from "tools/<file>" referenced by
// the manifest. Malformed individual tool files are logged and skipped;
// malformed manifests cause that whole pack to be skipped. Returns the number
// of tools successfully registered.
func (r *Registry) ScanPacks(packsDir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		return 0, fmt.Errorf("registry: reading packs dir %s: %w", packsDir, err)
	}

	registered := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packDir := filepath.Join(packsDir, entry.Name())
		manifestPath := filepath.Join(packDir, "manifest.json")
		manifestRaw, err := os.ReadFile(manifestPath)
		if err != nil {
			logger.Warn("registry: skipping pack, no manifest.json", "pack_dir", packDir, "error", err)
			continue
		}

		var doc any
		if err := json.Unmarshal(manifestRaw, &doc); err != nil {
			logger.Warn("registry: skipping pack, invalid manifest JSON", "pack_dir", packDir, "error", err)
			continue
		}
		if err := packManifestSchema.Validate(doc); err != nil {
			logger.Warn("registry: skipping pack, manifest fails schema validation", "pack_dir", packDir, "error", err)
			continue
		}

		var manifest PackManifest
		if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
			logger.Warn("registry: skipping pack, manifest decode failed", "pack_dir", packDir, "error", err)
			continue
		}

		for _, decl := range manifest.Tools {
			tool, err := resolveToolDecl(packDir, decl)
			if err != nil {
				logger.Warn("registry: skipping malformed tool", "pack_dir", packDir, "error", err)
				continue
			}
			r.Register(tool)
			registered++
		}
	}
	return registered, nil
}

func resolveToolDecl(packDir string, decl ToolDecl) (core.ToolInterface, error) {
	if decl.Tool != nil {
		return validateToolJSON(mustMarshal(decl.Tool))
	}
	if decl.File == "" {
		return core.ToolInterface{}, fmt.Errorf("tool declaration has neither inline tool nor file")
	}
	raw, err := os.ReadFile(filepath.Join(packDir, decl.File))
	if err != nil {
		return core.ToolInterface{}, fmt.Errorf("reading tool file %s: %w", decl.File, err)
	}
	return validateToolJSON(raw)
}

func validateToolJSON(raw []byte) (core.ToolInterface, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return core.ToolInterface{}, fmt.Errorf("invalid tool JSON: %w", err)
	}
	if err := toolSchema.Validate(doc); err != nil {
		return core.ToolInterface{}, fmt.Errorf("tool fails schema validation: %w", err)
	}
	var tool core.ToolInterface
	if err := json.Unmarshal(raw, &tool); err != nil {
		return core.ToolInterface{}, fmt.Errorf("decoding tool: %w", err)
	}
	return tool, nil
}

func mustMarshal(tool *core.ToolInterface) []byte {
	t := *tool
	// Port lists are optional in the tool schema; marshal absent ones as []
	// rather than null so the inline form validates like the file form.
	if t.Inputs == nil {
		t.Inputs = []core.Port{}
	}
	if t.Outputs == nil {
		t.Outputs = []core.Port{}
	}
	raw, _ := json.Marshal(t)
	return raw
}

// readDirNames returns the full paths of every subdirectory of dir.
func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
