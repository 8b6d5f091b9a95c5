package contract

import (
	"slices"
	"sync"

	"github.com/roach88/graphcfg/internal/status"
)

// Registry is a concurrency-safe contract store.
// Registration takes the write lock; lookups share the read lock.
type Registry struct {
	entries map[string]Contract
	mu      sync.RWMutex
}

// Default is the process-wide registry, pre-populated with Builtins.
var Default = NewBuiltinRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Contract)}
}

// NewBuiltinRegistry returns a registry holding Builtins.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, c := range Builtins() {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a contract.
// Returns an Internal error for an invalid contract or a duplicate name.
func (r *Registry) Register(c Contract) error {
	if err := c.Validate(); err != nil {
		return status.Internalf("%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[c.Name]; exists {
		return status.Internalf("contract %q already registered", c.Name)
	}
	r.entries[c.Name] = c
	return nil
}

// Contract returns the contract registered under name.
func (r *Registry) Contract(name string) (*Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return &c, true
}

// Names lists registered calculator names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Layered resolves names against each provider in turn.
type Layered []Provider

// Contract returns the first match.
func (l Layered) Contract(name string) (*Contract, bool) {
	for _, p := range l {
		if c, ok := p.Contract(name); ok {
			return c, true
		}
	}
	return nil, false
}
