package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/eliteGoblin/focusd/parentguard/internal/api"
	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

const reportDays = 14

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

// renderStatus formats the agent status; info may be nil when the
// registry is unreadable.
func renderStatus(st *api.StatusResponse, info *domain.DaemonInfo, now time.Time) string {
	rules := st.State.Rules
	var lines []string
	lines = append(lines, titleStyle.Render("parentguard "+st.Version))

	switch {
	case !rules.Enabled:
		lines = append(lines, row("Monitoring", warnStyle.Render("PAUSED")))
	default:
		lines = append(lines, row("Monitoring", okStyle.Render("ACTIVE")))
	}
	if st.State.InternetCut {
		lines = append(lines, row("Internet", errStyle.Render("CUT")))
	} else {
		lines = append(lines, row("Internet", okStyle.Render("up")))
	}

	profile := rules.ProfileID
	if profile == "" {
		profile = mutedStyle.Render("(none)")
	}
	lines = append(lines,
		row("Profile", profile),
		row("Screen time", formatBudget(st.State.MinutesUsed, rules.DailyLimitMinutes)),
		row("Windows", formatWindows(rules.Windows)),
		row("Blocked apps", formatList(rules.BlockedApps)),
		row("Blocked sites", formatList(rules.BlockedSites)),
		row("Admin PIN", map[bool]string{true: "set", false: "not set"}[st.PINRequired]),
		row("Uptime", now.Sub(st.StartedAt).Round(time.Second).String()),
	)
	if info != nil && info.LastHeartbeat > 0 {
		ago := now.Sub(time.Unix(info.LastHeartbeat, 0)).Round(time.Second)
		lines = append(lines, row("Heartbeat", fmt.Sprintf("%s ago (pid %d)", ago, info.PID)))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func formatBudget(used, limit uint32) string {
	if limit == 0 {
		return fmt.Sprintf("%d min (unlimited)", used)
	}
	s := fmt.Sprintf("%d / %d min", used, limit)
	if used >= limit {
		return errStyle.Render(s)
	}
	return s
}

func formatWindows(windows []domain.TimeWindow) string {
	var parts []string
	for _, w := range windows {
		if !w.Enabled {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s-%s %s", policy.FormatHHMM(w.Start), policy.FormatHHMM(w.End), formatDays(w.Days)))
	}
	if len(parts) == 0 {
		return mutedStyle.Render("(any time)")
	}
	return strings.Join(parts, ", ")
}

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func formatDays(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(dayNames) {
			names = append(names, dayNames[d])
		}
	}
	return strings.Join(names, "/")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return mutedStyle.Render("(none)")
	}
	return strings.Join(items, ", ")
}

// dailyCounts buckets events of kind into the last days calendar days
// ending today (local time). An empty kind counts every event.
func dailyCounts(events []domain.ActivityEvent, kind domain.EventKind, now time.Time, days int) []float64 {
	counts := make([]float64, days)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, ev := range events {
		if kind != "" && ev.Kind != kind {
			continue
		}
		ts := ev.Timestamp.In(now.Location())
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, now.Location())
		ago := int(today.Sub(day).Hours() / 24)
		if ago >= 0 && ago < days {
			counts[days-1-ago]++
		}
	}
	return counts
}

func renderReport(events []domain.ActivityEvent, now time.Time, recent int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Activity report") + "\n\n")
	if len(events) == 0 {
		b.WriteString(mutedStyle.Render("No activity recorded yet.") + "\n")
		return b.String()
	}

	counts := dailyCounts(events, "", now, reportDays)
	b.WriteString(asciigraph.Plot(counts,
		asciigraph.Height(6),
		asciigraph.Width(reportDays*4),
		asciigraph.Caption(fmt.Sprintf("enforcement events per day, last %d days", reportDays)),
	))
	b.WriteString("\n\n")

	byKind := map[domain.EventKind]int{}
	for _, ev := range events {
		byKind[ev.Kind]++
	}
	for _, kind := range []domain.EventKind{
		domain.EventAppBlocked, domain.EventOutsideWindow, domain.EventLimitReached,
		domain.EventNetworkRestored, domain.EventSiteBlocked, domain.EventSiteUnblocked,
		domain.EventRulesUpdated, domain.EventMonitoringStarted, domain.EventMonitoringStopped,
	} {
		if n := byKind[kind]; n > 0 {
			b.WriteString(row(string(kind), fmt.Sprintf("%d", n)) + "\n")
		}
	}

	b.WriteString("\n" + titleStyle.Render("Recent") + "\n")
	for i, ev := range events {
		if i == recent {
			break
		}
		fmt.Fprintf(&b, "%s  %-20s %s\n",
			mutedStyle.Render(ev.Timestamp.Local().Format("2006-01-02 15:04")), ev.Kind, ev.Detail)
	}
	return b.String()
}
