package policy

import (
	"fmt"
	"sort"
)

// Registry holds the category presets rule files may reference.
type Registry struct {
	presets map[string]Preset
}

// NewRegistry creates a registry with all built-in presets.
func NewRegistry() *Registry {
	return NewRegistryWithPresets(
		NewSteamPreset(),
		NewDota2Preset(),
		NewSocialPreset(),
		NewStreamingPreset(),
	)
}

// NewRegistryWithPresets creates a registry with custom presets (for testing).
func NewRegistryWithPresets(presets ...Preset) *Registry {
	r := &Registry{
		presets: make(map[string]Preset),
	}
	for _, p := range presets {
		r.Register(p)
	}
	return r
}

// Register adds a preset to the registry.
func (r *Registry) Register(p Preset) {
	r.presets[p.ID()] = p
}

// Get returns a preset by ID.
func (r *Registry) Get(id string) (Preset, bool) {
	p, ok := r.presets[id]
	return p, ok
}

// GetAll returns all presets sorted by ID.
func (r *Registry) GetAll() []Preset {
	result := make([]Preset, 0, len(r.presets))
	for _, id := range r.List() {
		result = append(result, r.presets[id])
	}
	return result
}

// List returns all preset IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.presets))
	for id := range r.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Expand returns the apps and sites of the named presets.
func (r *Registry) Expand(ids []string) (apps, sites []string, err error) {
	for _, id := range ids {
		p, ok := r.Get(id)
		if !ok {
			return nil, nil, fmt.Errorf("unknown preset: %s", id)
		}
		apps = append(apps, p.ProcessPatterns()...)
		sites = append(sites, p.Sites()...)
	}
	return apps, sites, nil
}
