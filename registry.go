// File: propbind/registry.go
package propbind

import (
	"sort"
	"sync"
)

// Registry holds the configuration sources a container resolves against.
// Sources are consulted in descending ordinal order; among equal ordinals,
// earlier registration wins.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
}

// NewRegistry returns an empty source registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddSource registers a source. Safe for concurrent use.
func (r *Registry) AddSource(s Source) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, s)
}

// Sources returns the registered sources in descending ordinal order.
// Ordinals are read at call time, so a file source whose config_ordinal
// changed on reload is re-ranked automatically.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	snapshot := make([]Source, len(r.sources))
	copy(snapshot, r.sources)
	r.mu.RUnlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Ordinal() > snapshot[j].Ordinal()
	})
	return snapshot
}

// Lookup spans all sources in precedence order and returns the raw value
// from the highest-ordinal source containing the key. found is true when
// any source contains the key, even with an empty value; emptiness is an
// override, not an absence.
func (r *Registry) Lookup(key string) (string, bool, error) {
	value, _, found, err := r.LookupSource(key)
	return value, found, err
}

// LookupSource is Lookup plus the winning source, for diagnostics.
func (r *Registry) LookupSource(key string) (string, Source, bool, error) {
	for _, src := range r.Sources() {
		if value, ok := src.Lookup(key); ok {
			if len(value) > MaxValueSize {
				return "", src, true, ErrValueSize
			}
			return value, src, true, nil
		}
	}
	return "", nil, false, nil
}

// Keys returns the union of keys across all sources, sorted.
func (r *Registry) Keys() []string {
	seen := make(map[string]bool)
	for _, src := range r.Sources() {
		for _, k := range src.Keys() {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
