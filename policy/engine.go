// Package policy implements the pre-dispatch permission/whitelist check the
// runner applies to every node before it reaches the Execution Gateway.
package policy

import (
	"errors"
	"fmt"

	"github.com/windrun-ai/workflowcore/core"
)

var (
	// ErrToolNotAllowed is returned when the policy's whitelist rejects the tool.
	ErrToolNotAllowed = errors.New("policy: tool not allowed")
	// ErrPermissionDenied is returned when a tool-declared permission is not
	// granted, or is explicitly denied.
	ErrPermissionDenied = errors.New("policy: permission denied")
)

// Violation is a node-level PolicyViolation error: never retried by the runner.
type Violation struct {
	ToolRef string
	Reason  error
}

func (v *Violation) Error() string {
	return fmt.Sprintf("policy: violation dispatching %s: %v", v.ToolRef, v.Reason)
}

func (v *Violation) Unwrap() error {
	return v.Reason
}

// Check runs the pre-dispatch policy check for one tool call: whitelist,
// then every permission the tool declares. Returns nil if the call may
// proceed, or a *Violation wrapping ErrToolNotAllowed/ErrPermissionDenied.
func Check(p core.Policy, tool core.ToolInterface) error {
	if !p.Whitelist.IsToolAllowed(tool.Ref) {
		return &Violation{ToolRef: tool.Ref, Reason: ErrToolNotAllowed}
	}
	for _, perm := range tool.Permissions {
		if !p.Permissions.IsAllowed(perm) {
			return &Violation{ToolRef: tool.Ref, Reason: fmt.Errorf("%w: %s", ErrPermissionDenied, perm)}
		}
	}
	return nil
}
