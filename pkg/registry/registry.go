// Package registry indexes tools by name and dispatches calls to them.
package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
)

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ports.Tool
}

// NewRegistry creates a registry holding tools.
// A later tool overwrites an earlier one of the same name.
func NewRegistry(tools ...ports.Tool) *Registry {
	r := &Registry{
		tools: make(map[string]ports.Tool, len(tools)),
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool under its definition name.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(tool ports.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition().Name] = tool
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the tool definitions in name order.
func (r *Registry) Definitions() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.Tool, 0, len(r.tools))
	for _, name := range slices.Sorted(maps.Keys(r.tools)) {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute looks up a tool by name and runs it.
// Returns an error if the tool is not found.
func (r *Registry) Execute(ctx context.Context, name, arguments string) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}
	return tool.Call(ctx, arguments)
}

// Dispatch runs call and folds any failure into the result, the shape a
// model expects back.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	out, err := r.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		return domain.ToolResult{ID: call.ID, Content: "error: " + err.Error(), IsError: true}
	}
	return domain.ToolResult{ID: call.ID, Content: out}
}
