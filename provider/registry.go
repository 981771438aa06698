package provider

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrNotRegistered is returned by Create for unknown names.
var ErrNotRegistered = errors.New("provider not registered")

// Registry maps names to factories. It never holds built instances.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// RegisterFactory registers factory under name, replacing any previous one.
func (r *Registry[T]) RegisterFactory(name string, factory Factory[T]) {
	if factory == nil {
		panic(fmt.Sprintf("provider: nil factory for %q", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Create builds a provider with the named factory.
func (r *Registry[T]) Create(name string, opts map[string]any) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return factory(opts)
}

// List returns the registered names in sorted order.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
