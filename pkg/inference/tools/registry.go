package tools

import (
	"sync"
)

// Registry holds the tools available to a dialogue. Names are unique and the
// description order is the registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	specs map[string]ToolSpec
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]ToolSpec),
		tools: make(map[string]Tool),
	}
}

// Register adds tool under its spec name.
func (r *Registry) Register(tool Tool) error {
	spec := tool.Spec().Clone()
	if err := spec.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}
	r.order = append(r.order, spec.Name)
	r.specs[spec.Name] = spec
	r.tools[spec.Name] = tool
	return nil
}

// MustRegister registers all tools and panics on the first error.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Describe returns copies of all specs in registration order.
func (r *Registry) Describe() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name].Clone())
	}
	return specs
}

// Resolve returns the spec and implementation registered under name.
func (r *Registry) Resolve(name string) (ToolSpec, Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return ToolSpec{}, nil, &UnknownToolError{Name: name}
	}
	return r.specs[name].Clone(), tool, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
