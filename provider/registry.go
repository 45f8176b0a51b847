package provider

import "sync"

// Registration pairs a provider with its application credentials.
type Registration struct {
	Provider Provider
	Config   Config
}

// Registry resolves providers by name. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[string]Registration{},
	}
}

func (r *Registry) Register(p Provider, cfg Config) {
	if p == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.Name()] = Registration{
		Provider: p,
		Config:   cfg,
	}
}

func (r *Registry) Lookup(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, ErrProviderNotFound.Clone().WithMetadata(map[string]any{
			"provider": name,
		})
	}

	return reg, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	return names
}
