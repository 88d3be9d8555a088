package tools

import (
	"fmt"
	"sync"
)

// ErrDuplicateTool is wrapped by Register when a tool name is already taken.
var ErrDuplicateTool = fmt.Errorf("duplicate tool")

// Registry is the single source of truth for what can be called. It is
// populated during startup and treated as read-only for the remainder of
// the process; List returns descriptors in registration order, which is
// part of the discovery contract.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool to the registry. It fails if the descriptor is
// invalid or a tool with the same name is already present; on failure the
// registry is unchanged.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	spec := tool.Spec()
	if err := ValidateSpec(spec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[spec.Name]; exists {
		return fmt.Errorf("%w: %q already registered", ErrDuplicateTool, spec.Name)
	}
	r.byName[spec.Name] = tool
	r.order = append(r.order, spec.Name)
	return nil
}

// Get returns the tool registered under name, or a not-found error whose
// message contains the literal name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.byName[name]
	if !exists {
		return nil, NewToolNotFoundError(name)
	}
	return tool, nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []*ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]*ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.byName[name].Spec())
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
