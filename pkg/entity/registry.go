package entity

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType is returned when a named entity type is not registered.
var ErrUnknownType = errors.New("unknown entity type")

// Factory returns a fresh entity with every field at its default.
type Factory func() Entity

// Registry resolves entity type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry is used when no registry is given explicitly.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a factory under name.
func (r *Registry) Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("entity: Register requires a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// RegisterSchema registers a factory producing Records of schema.
func (r *Registry) RegisterSchema(name string, schema *Schema) {
	r.Register(name, func() Entity { return schema.New() })
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, name)
	}
	return f, nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register adds a factory to DefaultRegistry.
func Register(name string, factory Factory) {
	DefaultRegistry.Register(name, factory)
}
