package registry

import "github.com/windrun-ai/workflowcore/core"

const (
	ManifestVersionV1 = "1.0"
	SchemaPackV1      = "https://workflowcore.dev/schemas/pack-manifest/v1.json"
)

// PackManifest describes one pack directory: its identity plus the tools,
// templates, and composite workflows it contributes to the registry and
// compiler.
type PackManifest struct {
	Schema          string           `json:"$schema,omitempty"`
	ManifestVersion string           `json:"manifest_version"`
	Pack            PackInfo         `json:"pack"`
	Tools           []ToolDecl       `json:"tools,omitempty"`
	Templates       []TemplateDecl   `json:"templates,omitempty"`
	Composites      []CompositeDecl  `json:"composites,omitempty"`
}

// PackInfo carries display metadata for a pack, independent of pack origin.
type PackInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	License     string   `json:"license,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ToolDecl is one tool contributed by a pack, given inline or loaded from a
// sibling "tools/<name>.json" file referenced by File.
type ToolDecl struct {
	File string             `json:"file,omitempty"`
	Tool *core.ToolInterface `json:"tool,omitempty"`
}

// TemplateDecl is one workflow template a pack offers the compiler's
// template-matching stage.
type TemplateDecl struct {
	ID          string   `json:"id"`
	TaskTypes   []string `json:"task_types"`
	File        string   `json:"file"`
	Description string   `json:"description,omitempty"`
}

// CompositeDecl is one reusable composite-node subgraph a pack contributes.
type CompositeDecl struct {
	ID   string `json:"id"`
	File string `json:"file"`
}

// NewPackManifest returns a manifest pre-populated with v1 schema metadata.
func NewPackManifest(id, name string) PackManifest {
	return PackManifest{
		Schema:          SchemaPackV1,
		ManifestVersion: ManifestVersionV1,
		Pack:            PackInfo{ID: id, Name: name},
	}
}
