package provider

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Registry manages provider factories by kind and live instances grouped
// into priority tiers. Insertion order within a tier is preserved.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Provider
	tiers     map[Tier][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
		tiers:     make(map[Tier][]string),
	}
}

// RegisterFactory registers a factory for a provider kind.
func (r *Registry) RegisterFactory(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Create instantiates a provider from cfg using the factory for cfg.Kind.
// The instance is not added to the registry.
func (r *Registry) Create(cfg Config) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider factory %q not registered", cfg.Kind)
	}
	cfg.ApplyDefaults()
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", cfg.ID, err)
	}
	return p, nil
}

// Kinds returns the sorted kinds with a registered factory.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Add registers p in its tier. Adding an id twice is an error.
func (r *Registry) Add(p Provider) error {
	tier := p.Tier()
	if !tier.Valid() {
		return fmt.Errorf("provider %s: unknown tier %q", p.ID(), tier)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[p.ID()]; exists {
		return fmt.Errorf("provider %q already registered", p.ID())
	}
	r.instances[p.ID()] = p
	r.tiers[tier] = append(r.tiers[tier], p.ID())
	return nil
}

// Get returns a provider by id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[id]
	return p, ok
}

// Remove deletes a provider by id and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.instances[id]
	if !ok {
		return false
	}
	delete(r.instances, id)
	tier := p.Tier()
	r.tiers[tier] = slices.DeleteFunc(r.tiers[tier], func(s string) bool { return s == id })
	return true
}

// Tier returns the providers in one tier, in insertion order.
func (r *Registry) Tier(t Tier) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.tiers[t]
	out := make([]Provider, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.instances[id])
	}
	return out
}

// Ordered returns every provider, primary tier first, then secondary, then fallback.
func (r *Registry) Ordered() []Provider {
	var out []Provider
	for _, t := range Tiers() {
		out = append(out, r.Tier(t)...)
	}
	return out
}

// All returns a copy of the id → provider map.
func (r *Registry) All() map[string]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Provider, len(r.instances))
	for id, p := range r.instances {
		out[id] = p
	}
	return out
}

// IDs returns provider ids in tier order.
func (r *Registry) IDs() []string {
	ordered := r.Ordered()
	ids := make([]string, len(ordered))
	for i, p := range ordered {
		ids[i] = p.ID()
	}
	return ids
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Clear removes every instance. Factories are kept.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]Provider)
	r.tiers = make(map[Tier][]string)
}
