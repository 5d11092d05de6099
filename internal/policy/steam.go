package policy

// SteamPreset blocks the Steam client and store.
type SteamPreset struct{}

// NewSteamPreset creates the Steam preset.
func NewSteamPreset() *SteamPreset {
	return &SteamPreset{}
}

func (p *SteamPreset) ID() string {
	return "steam"
}

func (p *SteamPreset) Name() string {
	return "Steam"
}

// ProcessPatterns returns Steam process names across macOS, Windows and Linux.
func (p *SteamPreset) ProcessPatterns() []string {
	return []string{
		"steam",
		"steam_osx",
		"steamwebhelper",
		"steam helper",
		"steamservice",
	}
}

// Sites returns the store and community domains.
func (p *SteamPreset) Sites() []string {
	return []string{
		"steampowered.com",
		"store.steampowered.com",
		"steamcommunity.com",
	}
}

// Ensure SteamPreset implements Preset.
var _ Preset = (*SteamPreset)(nil)
