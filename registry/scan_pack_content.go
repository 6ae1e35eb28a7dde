package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/windrun-ai/workflowcore/core"
)

// CompositeStore holds the nested WorkflowSpec a pack contributes for its
// composite/subgraph nodes to reference, keyed by the id it is registered
// under. Satisfies runner.SubgraphResolver structurally.
type CompositeStore struct {
	specs map[string]*core.WorkflowSpec
}

// NewCompositeStore returns an empty composite store.
func NewCompositeStore() *CompositeStore {
	return &CompositeStore{specs: make(map[string]*core.WorkflowSpec)}
}

// Register adds or overwrites the subgraph spec registered under ref.
func (s *CompositeStore) Register(ref string, spec *core.WorkflowSpec) {
	s.specs[ref] = spec
}

// Resolve looks up a subgraph spec by ref.
func (s *CompositeStore) Resolve(ref string) (*core.WorkflowSpec, bool) {
	spec, ok := s.specs[ref]
	return spec, ok
}

// ScanPackTemplates walks the same pack layout as ScanPacks and registers
// every TemplateDecl it finds into templates, loading each from its
// declared file relative to the pack directory. Returns the number of
// templates registered.
func (r *Registry) ScanPackTemplates(packsDir string, templates *TemplateStore, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manifests, err := readPackManifests(packsDir, logger)
	if err != nil {
		return 0, err
	}

	registered := 0
	for packDir, manifest := range manifests {
		for _, decl := range manifest.Templates {
			spec, err := loadWorkflowSpecDecl(packDir, decl.File)
			if err != nil {
				logger.Warn("registry: skipping malformed template", "pack_dir", packDir, "template_id", decl.ID, "error", err)
				continue
			}
			templates.RegisterTemplate(decl.ID, decl.TaskTypes, spec)
			registered++
		}
	}
	return registered, nil
}

// ScanPackComposites mirrors ScanPackTemplates for CompositeDecl entries,
// registering each one into composites under its declared id so a
// runner.SubgraphResolver can resolve a composite/subgraph node's Subgraph
// reference.
func (r *Registry) ScanPackComposites(packsDir string, composites *CompositeStore, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manifests, err := readPackManifests(packsDir, logger)
	if err != nil {
		return 0, err
	}

	registered := 0
	for packDir, manifest := range manifests {
		for _, decl := range manifest.Composites {
			spec, err := loadWorkflowSpecDecl(packDir, decl.File)
			if err != nil {
				logger.Warn("registry: skipping malformed composite", "pack_dir", packDir, "composite_id", decl.ID, "error", err)
				continue
			}
			composites.Register(decl.ID, &spec)
			registered++
		}
	}
	return registered, nil
}

// readPackManifests re-walks packsDir and decodes every pack's manifest.json,
// skipping (with a log) any pack ScanPacks would also have skipped. It
// re-validates against the same schema rather than caching ScanPacks' work,
// since templates/composites may be scanned independently of tools.
func readPackManifests(packsDir string, logger *slog.Logger) (map[string]PackManifest, error) {
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		return nil, fmt.Errorf("registry: reading packs dir %s: %w", packsDir, err)
	}

	out := make(map[string]PackManifest)
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
		out[packDir] = manifest
	}
	return out, nil
}

func loadWorkflowSpecDecl(packDir, file string) (core.WorkflowSpec, error) {
	if file == "" {
		return core.WorkflowSpec{}, fmt.Errorf("declaration has no file")
	}
	// #nosec G304 -- path comes from a manifest shipped inside the pack directory.
	raw, err := os.ReadFile(filepath.Join(packDir, file))
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("reading %s: %w", file, err)
	}
	var spec core.WorkflowSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("decoding %s: %w", file, err)
	}
	return spec, nil
}
