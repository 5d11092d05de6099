package policy

import (
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// WindowSpec is the file/wire form of a TimeWindow.
type WindowSpec struct {
	Start   string `yaml:"start" json:"start"`
	End     string `yaml:"end" json:"end"`
	Days    []int  `yaml:"days" json:"days"`
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"` // defaults to true
}

// RuleSpec is the file/wire form of a RuleSet.
//
//	profile: kid
//	daily_limit_minutes: 120
//	presets: [steam, social]
//	blocked_apps: [minecraft]
//	blocked_sites: [example.com]
//	windows:
//	  - {start: "16:00", end: "19:30", days: [1, 2, 3, 4, 5]}
type RuleSpec struct {
	ProfileID         string       `yaml:"profile" json:"profile"`
	Presets           []string     `yaml:"presets,omitempty" json:"presets,omitempty"`
	BlockedApps       []string     `yaml:"blocked_apps" json:"blocked_apps"`
	BlockedSites      []string     `yaml:"blocked_sites" json:"blocked_sites"`
	DailyLimitMinutes uint32       `yaml:"daily_limit_minutes" json:"daily_limit_minutes"`
	Windows           []WindowSpec `yaml:"windows" json:"windows"`
	Enabled           *bool        `yaml:"enabled,omitempty" json:"enabled,omitempty"` // defaults to true
}

// LoadRuleFile reads a YAML rule file.
func LoadRuleFile(path string) (RuleSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return RuleSpec{}, fmt.Errorf("failed to open rule file: %w", err)
	}
	defer f.Close()
	return DecodeRules(f)
}

// DecodeRules decodes a YAML rule document, rejecting unknown keys.
func DecodeRules(r io.Reader) (RuleSpec, error) {
	var spec RuleSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return RuleSpec{}, fmt.Errorf("failed to decode rules: %w", err)
	}
	return spec, nil
}

// ToRuleSet expands presets and normalises names. A nil registry
// rejects any preset reference.
func (s RuleSpec) ToRuleSet(reg *Registry) (domain.RuleSet, error) {
	apps := s.BlockedApps
	sites := s.BlockedSites
	if len(s.Presets) > 0 {
		if reg == nil {
			return domain.RuleSet{}, fmt.Errorf("presets not available: %v", s.Presets)
		}
		pApps, pSites, err := reg.Expand(s.Presets)
		if err != nil {
			return domain.RuleSet{}, err
		}
		apps = append(slices.Clone(apps), pApps...)
		sites = append(slices.Clone(sites), pSites...)
	}

	rules := domain.RuleSet{
		ProfileID:         strings.TrimSpace(s.ProfileID),
		BlockedApps:       NormalizeApps(apps),
		BlockedSites:      NormalizeSites(sites),
		DailyLimitMinutes: s.DailyLimitMinutes,
		Enabled:           s.Enabled == nil || *s.Enabled,
	}
	for _, w := range s.Windows {
		rules.Windows = append(rules.Windows, w.ToWindow())
	}
	return rules, nil
}

// ToWindow parses the HH:MM bounds.
func (w WindowSpec) ToWindow() domain.TimeWindow {
	days := make([]int, 0, len(w.Days))
	for _, d := range w.Days {
		if d >= 0 && d <= 6 && !slices.Contains(days, d) {
			days = append(days, d)
		}
	}
	return domain.TimeWindow{
		Start:   ParseHHMM(w.Start),
		End:     ParseHHMM(w.End),
		Days:    days,
		Enabled: w.Enabled == nil || *w.Enabled,
	}
}

// SpecFromRuleSet renders a RuleSet back to its wire form.
func SpecFromRuleSet(r domain.RuleSet) RuleSpec {
	enabled := r.Enabled
	spec := RuleSpec{
		ProfileID:         r.ProfileID,
		BlockedApps:       slices.Clone(r.BlockedApps),
		BlockedSites:      slices.Clone(r.BlockedSites),
		DailyLimitMinutes: r.DailyLimitMinutes,
		Enabled:           &enabled,
	}
	for _, w := range r.Windows {
		we := w.Enabled
		spec.Windows = append(spec.Windows, WindowSpec{
			Start:   FormatHHMM(w.Start),
			End:     FormatHHMM(w.End),
			Days:    slices.Clone(w.Days),
			Enabled: &we,
		})
	}
	return spec
}

// NormalizeProcessName lowercases name and drops a trailing .exe or .app,
// so "Minecraft.exe" and "minecraft" name the same program.
func NormalizeProcessName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".exe")
	return strings.TrimSuffix(name, ".app")
}

// NormalizeApps applies NormalizeProcessName and drops empties and duplicates.
func NormalizeApps(apps []string) []string {
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		a = NormalizeProcessName(a)
		if a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// NormalizeSites applies NormalizeSite and drops empties and duplicates.
func NormalizeSites(sites []string) []string {
	out := make([]string, 0, len(sites))
	for _, s := range sites {
		s = NormalizeSite(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeSite reduces user input such as "https://www.Example.com/path"
// to the bare host "example.com". The www. form is added by the block list.
func NormalizeSite(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimPrefix(s, "www.")
	if strings.ContainsAny(s, " \t#") {
		return ""
	}
	return s
}
