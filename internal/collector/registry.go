package collector

import (
	"fmt"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

// Registry keeps a mapping from source kinds to their collector
// implementations.
type Registry struct {
	collectors map[domain.SourceKind]ports.Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[domain.SourceKind]ports.Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c ports.Collector) {
	if r.collectors == nil {
		r.collectors = map[domain.SourceKind]ports.Collector{}
	}
	r.collectors[c.Kind()] = c
}

// Resolve returns a collector by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (ports.Collector, error) {
	if c, ok := r.collectors[kind]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector for kind %s is not registered", kind)
}
