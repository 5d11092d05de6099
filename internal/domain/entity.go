// Package domain contains core business entities and interfaces.
// This is the innermost layer - no dependencies outside the standard library.
package domain

import (
	"slices"
	"time"
)

// TimeWindow is one permitted usage interval on a set of weekdays.
// Start and End are minutes since midnight in [0, 1439]; Days holds
// weekday indices (0=Sunday..6=Saturday).
type TimeWindow struct {
	Start   int   `json:"start"`
	End     int   `json:"end"`
	Days    []int `json:"days"`
	Enabled bool  `json:"enabled"`
}

// RuleSet is the full policy for the active profile.
type RuleSet struct {
	ProfileID         string       `json:"profile_id"`
	BlockedApps       []string     `json:"blocked_apps"`
	BlockedSites      []string     `json:"blocked_sites"`
	DailyLimitMinutes uint32       `json:"daily_limit_minutes"` // 0 = unlimited
	Windows           []TimeWindow `json:"windows"`
	Enabled           bool         `json:"enabled"`
}

// Clone returns a deep copy so snapshots never alias the live record.
func (r RuleSet) Clone() RuleSet {
	out := r
	out.BlockedApps = slices.Clone(r.BlockedApps)
	out.BlockedSites = slices.Clone(r.BlockedSites)
	if r.Windows != nil {
		out.Windows = make([]TimeWindow, len(r.Windows))
		for i, w := range r.Windows {
			w.Days = slices.Clone(w.Days)
			out.Windows[i] = w
		}
	}
	return out
}

// MonitoringState is the single mutable record shared by the
// enforcement loop and the command surface.
type MonitoringState struct {
	Rules       RuleSet `json:"rules"`
	MinutesUsed uint32  `json:"minutes_used"`
	InternetCut bool    `json:"internet_cut"`
}

// NetworkAction describes what a cycle did to connectivity.
type NetworkAction string

const (
	NetworkUnchanged NetworkAction = ""
	NetworkCutWindow NetworkAction = "cut_outside_window"
	NetworkCutBudget NetworkAction = "cut_limit_reached"
	NetworkRestored  NetworkAction = "restored"
)

// CycleReport captures what happened during a single enforcement cycle.
type CycleReport struct {
	Skipped        bool
	KilledApps     []string
	NetworkAction  NetworkAction
	MinutesUsed    uint32
	InternetCut    bool
	BlockListFresh bool // block list was (re)applied this cycle
	Errors         []error
	ExecutedAt     time.Time
	DurationMs     int64
}

// EventKind classifies activity journal entries.
type EventKind string

const (
	EventAppBlocked        EventKind = "app_blocked"
	EventOutsideWindow     EventKind = "outside_window"
	EventLimitReached      EventKind = "limit_reached"
	EventNetworkRestored   EventKind = "network_restored"
	EventRulesUpdated      EventKind = "rules_updated"
	EventMonitoringStarted EventKind = "monitoring_started"
	EventMonitoringStopped EventKind = "monitoring_stopped"
	EventSiteBlocked       EventKind = "site_blocked"
	EventSiteUnblocked     EventKind = "site_unblocked"
)

// ActivityEvent is one entry of the activity journal.
type ActivityEvent struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Kind      EventKind `json:"kind"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// DaemonInfo is what the running daemon publishes for CLI discovery.
type DaemonInfo struct {
	PID           int    `json:"pid"`
	Addr          string `json:"addr"`
	AppVersion    string `json:"app_version,omitempty"`
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	Mode          string `json:"mode,omitempty"` // "user" or "system"
}
