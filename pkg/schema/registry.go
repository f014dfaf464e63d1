package schema

import (
	"sort"
)

// Registry stores composite types by name. Definitions are resolved lazily at
// flatten time, so a type may reference another that is registered later, as
// long as both exist before Flatten is called. Re-registering a name replaces
// the previous definition.
//
// A Registry is not safe for concurrent mutation; it is filled by a single
// parse and only read afterwards.
type Registry struct {
	types map[string]*Composite
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*Composite),
	}
}

// Register adds or replaces a composite type.
func (r *Registry) Register(c *Composite) {
	r.types[c.Name] = c
}

// Lookup returns the composite type with the given name.
func (r *Registry) Lookup(name string) (*Composite, bool) {
	c, ok := r.types[name]
	return c, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// Names returns all registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
