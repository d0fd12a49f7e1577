package tradfri

import "sync"

// Registry holds the live adapters keyed by gateway instance ID. The scanner
// fills it, the bridge and the debug endpoints read it.
type Registry struct {
	mu     sync.RWMutex
	lights map[string]*Light
	groups map[string]*LightGroup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lights: make(map[string]*Light),
		groups: make(map[string]*LightGroup),
	}
}

// AddLight registers a light adapter. Returns false if an adapter with the
// same ID is already registered; the existing one stays.
func (r *Registry) AddLight(l *Light) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lights[l.ID()]; ok {
		return false
	}
	r.lights[l.ID()] = l
	return true
}

// Light returns the light adapter for an ID.
func (r *Registry) Light(id string) (*Light, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lights[id]
	return l, ok
}

// Lights returns all registered light adapters.
func (r *Registry) Lights() []*Light {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Light, 0, len(r.lights))
	for _, l := range r.lights {
		out = append(out, l)
	}
	return out
}

// AddGroup registers a group adapter. Returns false if an adapter with the
// same ID is already registered.
func (r *Registry) AddGroup(g *LightGroup) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[g.ID()]; ok {
		return false
	}
	r.groups[g.ID()] = g
	return true
}

// Group returns the group adapter for an ID.
func (r *Registry) Group(id string) (*LightGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	return g, ok
}

// Groups returns all registered group adapters.
func (r *Registry) Groups() []*LightGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*LightGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out
}
