package api

import (
	"time"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// HeaderAdminPIN carries the admin PIN on mutating requests.
const HeaderAdminPIN = "X-Admin-PIN"

// Response is the envelope returned by every command and by failed reads.
type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Version     string                 `json:"version"`
	StartedAt   time.Time              `json:"started_at"`
	PINRequired bool                   `json:"pin_required"`
	State       domain.MonitoringState `json:"state"`
}

type ScreenTimeResponse struct {
	MinutesUsed       uint32 `json:"minutes_used"`
	DailyLimitMinutes uint32 `json:"daily_limit_minutes"`
}

type ProcessesResponse struct {
	Processes []string `json:"processes"`
}

type ActivityResponse struct {
	Events []domain.ActivityEvent `json:"events"`
}
