// Package sites holds the per-site adapters and the closed registry that resolves source names to them.
package sites

import (
	"sort"

	"letraz-harvester/internal/scraper"
)

// Registry resolves source names to adapters. The set is fixed at construction.
type Registry struct {
	adapters map[string]scraper.Adapter
}

// NewRegistry builds a registry containing every built-in site
func NewRegistry(timing scraper.Timing) *Registry {
	return NewRegistryOf(NewNaukri(timing), NewLinkedIn(timing))
}

// NewRegistryOf builds a registry over an explicit adapter set
func NewRegistryOf(adapters ...scraper.Adapter) *Registry {
	r := &Registry{adapters: make(map[string]scraper.Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter registered under name
func (r *Registry) Get(name string) (scraper.Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names lists the registered sources alphabetically
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
