// Package policy evaluates rule sets: allowed time windows, clock helpers,
// rule files and the built-in category presets a rule file can reference.
package policy

// Preset is a named bundle of apps and sites (a category such as "games"
// or "social") that a rule file can pull in by ID.
type Preset interface {
	// ID returns unique identifier (e.g., "steam", "social").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// ProcessPatterns returns executable names to terminate.
	// Patterns are matched case-insensitively as substrings.
	ProcessPatterns() []string

	// Sites returns domains to add to the block list.
	Sites() []string
}

// staticPreset is a Preset defined by literal lists.
type staticPreset struct {
	id    string
	name  string
	apps  []string
	sites []string
}

func (p *staticPreset) ID() string                { return p.id }
func (p *staticPreset) Name() string              { return p.name }
func (p *staticPreset) ProcessPatterns() []string { return p.apps }
func (p *staticPreset) Sites() []string           { return p.sites }

// NewPreset creates a preset from literal lists (custom categories, tests).
func NewPreset(id, name string, apps, sites []string) Preset {
	return &staticPreset{id: id, name: name, apps: apps, sites: sites}
}
