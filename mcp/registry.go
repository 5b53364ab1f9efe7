package mcp

import (
	"fmt"
	"sync"
)

// Registry holds the tool descriptors a server offers. Registration happens
// at server startup; the registry is effectively read-only while serving.
type Registry struct {
	order  []string
	byName map[string]Tool
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Tool),
	}
}

// Register adds a descriptor. Names must be unique within a server.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.byName[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}

	r.byName[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.byName[name])
	}
	return tools
}

// Resolve returns the descriptor for name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.byName[name]
	if !exists {
		return Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
