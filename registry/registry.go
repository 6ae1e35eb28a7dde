// Package registry is the in-memory store of ToolInterface definitions
// available to the compiler and the runner. It supports registration from
// pack directories on disk and hot-reload when those directories change.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/windrun-ai/workflowcore/core"
)

var (
	ErrToolNotFound      = errors.New("registry: tool not found")
	ErrDuplicateTool     = errors.New("registry: tool already registered")
	ErrCapabilityUnknown = errors.New("registry: no tool declares capability")
)

// Registry holds every known ToolInterface, keyed by its ref ("pack/tool@semver").
type Registry struct {
	mu    sync.RWMutex
	tools map[string]core.ToolInterface
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]core.ToolInterface)}
}

// Register adds a tool definition. Re-registering the same ref overwrites the
// previous entry in place, preserving its position in registration order --
// this lets scan_packs re-scan a pack directory after a file changes without
// reshuffling List order.
func (r *Registry) Register(tool core.ToolInterface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Ref]; !exists {
		r.order = append(r.order, tool.Ref)
	}
	r.tools[tool.Ref] = tool
}

// Unregister removes a tool by ref, if present.
func (r *Registry) Unregister(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[ref]; !ok {
		return
	}
	delete(r.tools, ref)
	for i, o := range r.order {
		if o == ref {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get resolves a tool by ref.
func (r *Registry) Get(ref string) (core.ToolInterface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[ref]
	if !ok {
		return core.ToolInterface{}, fmt.Errorf("%w: %s", ErrToolNotFound, ref)
	}
	return t, nil
}

// Has reports whether ref is registered.
func (r *Registry) Has(ref string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[ref]
	return ok
}

// List returns every registered tool in registration order.
func (r *Registry) List() []core.ToolInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ToolInterface, 0, len(r.order))
	for _, ref := range r.order {
		out = append(out, r.tools[ref])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchByCapability returns every tool declaring a capability tag that
// starts with the given prefix (a trailing "*" is ignored, so "net.*"
// matches "net.http"), sorted by ref for deterministic output.
func (r *Registry) SearchByCapability(capability string) []core.ToolInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix := strings.TrimSuffix(capability, "*")
	var out []core.ToolInterface
	for _, ref := range r.order {
		t := r.tools[ref]
		for _, c := range t.Capabilities {
			if strings.HasPrefix(c, prefix) {
				out = append(out, t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}
