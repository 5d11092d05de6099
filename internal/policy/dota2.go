package policy

// Dota2Preset blocks Dota 2. It does not block Steam itself, so a profile
// can allow other Steam games.
type Dota2Preset struct{}

// NewDota2Preset creates the Dota 2 preset.
func NewDota2Preset() *Dota2Preset {
	return &Dota2Preset{}
}

func (p *Dota2Preset) ID() string {
	return "dota2"
}

func (p *Dota2Preset) Name() string {
	return "Dota 2"
}

// ProcessPatterns returns Dota 2 process names to kill.
func (p *Dota2Preset) ProcessPatterns() []string {
	return []string{
		"dota2",
		"dota_osx64",
		"dota 2",
		"dota2_launcher",
	}
}

func (p *Dota2Preset) Sites() []string {
	return []string{"dota2.com"}
}

// Ensure Dota2Preset implements Preset.
var _ Preset = (*Dota2Preset)(nil)
