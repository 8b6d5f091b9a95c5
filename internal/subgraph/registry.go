package subgraph

import (
	"slices"
	"sync"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
)

// Source resolves template type names. Lookup fails with a NotFound status
// when name is not registered.
type Source interface {
	Lookup(name string) (ir.GraphConfig, error)
}

// Registry is a concurrency-safe template store.
// Population takes the write lock; lookups share the read lock, so a
// registry can be read from many validations at once.
type Registry struct {
	entries map[string]ir.GraphConfig
	mu      sync.RWMutex
}

// Default is the process-wide template registry.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]ir.GraphConfig)}
}

// Register adds a template under cfg.Type.
// Returns an Internal error if the type is empty or already registered.
func (r *Registry) Register(cfg ir.GraphConfig) error {
	if cfg.Type == "" {
		return status.Internalf("template has no type name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[cfg.Type]; exists {
		return status.Internalf("template %q already registered", cfg.Type)
	}
	r.entries[cfg.Type] = cfg.Clone()
	return nil
}

// Lookup returns a copy of the template registered under name.
func (r *Registry) Lookup(name string) (ir.GraphConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.entries[name]
	if !ok {
		return ir.GraphConfig{}, status.NotFoundf("no subgraph template registered as %q", name)
	}
	return cfg.Clone(), nil
}

// Names lists registered template types in sorted order.
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

// Register adds a template to the Default registry.
func Register(cfg ir.GraphConfig) error {
	return Default.Register(cfg)
}

// Lookup finds a template in the Default registry.
func Lookup(name string) (ir.GraphConfig, error) {
	return Default.Lookup(name)
}
