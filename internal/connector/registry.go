// internal/connector/registry.go
package connector

import (
	"sort"
	"strings"

	custom_errors "repository-sync/internal/errors"
)

// Connector ids.
const (
	IDGitHub     = "github"
	IDDescriptor = "remote_descriptor_file"
)

// Factory creates a fresh connector instance.
type Factory func(Deps) Connector

// Registry maps connector ids to their factories.
type Registry struct {
	factories map[string]Factory
	deps      Deps
}

// NewRegistry creates an empty registry whose factories receive deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		deps:      deps,
	}
}

// DefaultRegistry returns a registry with every built-in connector registered.
func DefaultRegistry(deps Deps) *Registry {
	r := NewRegistry(deps)
	r.Register(IDGitHub, func(d Deps) Connector { return NewGitHub(d) })
	r.Register(IDDescriptor, func(d Deps) Connector { return NewDescriptor(d) })
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, factory Factory) {
	r.factories[id] = factory
}

// Has checks if id has a registered factory.
func (r *Registry) Has(id string) bool {
	_, ok := r.factories[id]
	return ok
}

// List returns all registered ids, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve instantiates the connectors for the enabled ids, in configuration order.
// Blank ids are skipped; unknown or repeated ids are configuration errors.
func (r *Registry) Resolve(ids []string) ([]Connector, error) {
	connectors := make([]Connector, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		factory, ok := r.factories[id]
		if !ok {
			return nil, &custom_errors.ErrUnknownConnector{ID: id}
		}
		if seen[id] {
			return nil, &custom_errors.ErrDuplicateConnector{ID: id}
		}
		seen[id] = true
		connectors = append(connectors, factory(r.deps))
	}
	return connectors, nil
}
