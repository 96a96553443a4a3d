package oauth

import "sort"

// Registry is the fixed set of provider descriptors known to the process.
// Built once at startup and read-only afterwards.
type Registry struct {
	descriptors map[string]Descriptor
}

// NewRegistry indexes descriptors by ID. A duplicated ID keeps the last one.
func NewRegistry(ds ...Descriptor) *Registry {
	m := make(map[string]Descriptor, len(ds))
	for _, d := range ds {
		m[d.ID()] = d
	}
	return &Registry{descriptors: m}
}

// Get looks up a descriptor by provider ID.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.descriptors[id]
	return d, ok
}

// IDs returns the registered provider IDs, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
