package collector

import (
	"NewsOrchestrator/internal/ports"
)

// Registry keeps a mapping from source type strings to collector implementations.
type Registry struct {
	collectors map[string]ports.Collector
}

var _ ports.CollectorResolver = (*Registry)(nil)

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]ports.Collector{}}
}

// Register adds or replaces a collector implementation under its own type.
func (r *Registry) Register(c ports.Collector) {
	if r.collectors == nil {
		r.collectors = map[string]ports.Collector{}
	}
	r.collectors[c.Type()] = c
}

// Resolve returns the collector for a source type. A missing type is not an
// error here; callers synthesize a per-source failure and move on.
func (r *Registry) Resolve(sourceType string) (ports.Collector, bool) {
	c, ok := r.collectors[sourceType]
	return c, ok
}

// Types lists registered source types, mainly for startup logging.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.collectors))
	for t := range r.collectors {
		types = append(types, t)
	}
	return types
}
