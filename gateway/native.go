package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Handler is an in-process tool implementation, looked up by handler id.
type Handler func(ctx context.Context, inputs, config map[string]any) (map[string]any, error)

// NativeAdapter dispatches to in-process handlers registered by id. One
// adapter serves every tool ref rather than one adapter per tool instance.
type NativeAdapter struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewNativeAdapter returns an adapter with no handlers registered.
func NewNativeAdapter() *NativeAdapter {
	return &NativeAdapter{handlers: make(map[string]Handler)}
}

// RegisterHandler installs the handler invoked for runtime.HandlerID.
func (a *NativeAdapter) RegisterHandler(handlerID string, h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[handlerID] = h
}

// Invoke looks up ToolInput's handler by the handler id carried in Config
// under the "__handler_id" key (set by the runner from RuntimeSpec.HandlerID)
// and calls it directly in-process.
func (a *NativeAdapter) Invoke(ctx context.Context, in ToolInput) (ToolOutput, error) {
	handlerID, _ := in.Config["__handler_id"].(string)
	a.mu.RLock()
	h, ok := a.handlers[handlerID]
	a.mu.RUnlock()
	if !ok {
		return ToolOutput{}, fmt.Errorf("gateway: no native handler registered for %q", handlerID)
	}
	outputs, err := h(ctx, in.Inputs, in.Config)
	if err != nil {
		return ToolOutput{}, err
	}
	return ToolOutput{Outputs: outputs}, nil
}
