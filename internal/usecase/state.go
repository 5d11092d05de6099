package usecase

import (
	"context"
	"slices"
	"sync"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// State owns the MonitoringState shared by the enforcement loop and the
// command surface. mu guards the record and is only held to copy or mutate
// it, never across an OS call. toggleMu serialises network toggles so the
// cut flag always matches the last action taken.
type State struct {
	mu       sync.Mutex
	st       domain.MonitoringState
	toggleMu sync.Mutex
}

// NewState creates a state with an empty, disabled rule set.
func NewState() *State {
	return &State{}
}

// Snapshot returns a deep copy of the whole record.
func (s *State) Snapshot() domain.MonitoringState {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st
	snap.Rules = s.st.Rules.Clone()
	return snap
}

// ReplaceRules installs rules and resets usage accounting.
func (s *State) ReplaceRules(rules domain.RuleSet) {
	rules = rules.Clone()
	s.mu.Lock()
	s.st.Rules = rules
	s.st.MinutesUsed = 0
	s.mu.Unlock()
}

// SetEnabled flips rules.enabled and returns the previous value.
func (s *State) SetEnabled(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.st.Rules.Enabled
	s.st.Rules.Enabled = enabled
	return prev
}

// IncrementMinutes adds one budget unit and returns the new total.
func (s *State) IncrementMinutes() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.MinutesUsed++
	return s.st.MinutesUsed
}

func (s *State) MinutesUsed() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.MinutesUsed
}

func (s *State) InternetCut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.InternetCut
}

// ProfileID returns the active profile identifier.
func (s *State) ProfileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Rules.ProfileID
}

// AddSite appends site to the blocked sites; false if already present.
func (s *State) AddSite(site string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.st.Rules.BlockedSites, site) {
		return false
	}
	s.st.Rules.BlockedSites = append(s.st.Rules.BlockedSites, site)
	return true
}

// RemoveSite drops site from the blocked sites; false if absent.
func (s *State) RemoveSite(site string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.st.Rules.BlockedSites, site)
	if i < 0 {
		return false
	}
	s.st.Rules.BlockedSites = slices.Delete(s.st.Rules.BlockedSites, i, i+1)
	return true
}

// SetNetwork drives the network toward cut (true) or restored (false).
//
// Unless force is set, nothing happens when the flag already matches, and
// changed is false. Otherwise toggle runs with toggleMu held and the flag is
// written afterwards, even when toggle fails: the action was attempted and
// the failure is the caller's to report.
func (s *State) SetNetwork(ctx context.Context, cut, force bool, toggle func(ctx context.Context, enabled bool) error) (changed bool, err error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	if !force && s.InternetCut() == cut {
		return false, nil
	}

	err = toggle(ctx, !cut)

	s.mu.Lock()
	s.st.InternetCut = cut
	s.mu.Unlock()
	return true, err
}
