// Package usecase contains application business logic: the shared
// monitoring state, the hosts block list, one enforcement cycle and the
// command surface.
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/metrics"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

// RestorePolicy decides whether returning to an allowed window restores
// a cut network.
type RestorePolicy string

const (
	// RestoreUnconditional restores whenever the device is back inside an
	// allowed window, unless the daily budget is exhausted.
	RestoreUnconditional RestorePolicy = "unconditional"

	// RestoreUnlimitedBudgetOnly restores only when the profile has no
	// daily limit. A limited profile stays cut until a manual restore or
	// a rule update.
	RestoreUnlimitedBudgetOnly RestorePolicy = "unlimited-budget-only"
)

// ParseRestorePolicy validates a configured policy name.
func ParseRestorePolicy(s string) (RestorePolicy, error) {
	switch p := RestorePolicy(strings.TrimSpace(s)); p {
	case "", RestoreUnconditional:
		return RestoreUnconditional, nil
	case RestoreUnlimitedBudgetOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown restore policy %q (want %q or %q)", s, RestoreUnconditional, RestoreUnlimitedBudgetOnly)
	}
}

// EnforcerConfig holds cycle parameters.
type EnforcerConfig struct {
	UTCOffsetMinutes int
	RestorePolicy    RestorePolicy

	// NotifyTimeout bounds each alert sent from inside a cycle.
	// Zero uses DefaultNotifyTimeout.
	NotifyTimeout time.Duration
}

// DefaultNotifyTimeout keeps an unreachable alert sink from stalling a cycle.
const DefaultNotifyTimeout = 5 * time.Second

// EnforcerImpl implements domain.Enforcer.
type EnforcerImpl struct {
	config    EnforcerConfig
	state     *State
	platform  domain.Platform
	blockList *BlockList
	evaluator *policy.Evaluator
	journal   domain.ActivityJournal
	notifier  domain.Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewEnforcer creates the cycle runner. journal and notifier may be nil.
func NewEnforcer(
	config EnforcerConfig,
	state *State,
	platform domain.Platform,
	blockList *BlockList,
	clock domain.Clock,
	journal domain.ActivityJournal,
	notifier domain.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EnforcerImpl {
	if config.RestorePolicy == "" {
		config.RestorePolicy = RestoreUnconditional
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = DefaultNotifyTimeout
	}
	return &EnforcerImpl{
		config:    config,
		state:     state,
		platform:  platform,
		blockList: blockList,
		evaluator: policy.NewEvaluator(clock, config.UTCOffsetMinutes),
		journal:   journal,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
	}
}

// RunCycle performs one enforcement pass. It never fails: every
// OS-facing error is logged, counted and collected in the report, and
// the next cycle tries again.
func (e *EnforcerImpl) RunCycle(ctx context.Context) (report domain.CycleReport) {
	start := time.Now()
	report.ExecutedAt = start

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("enforcement cycle panicked", zap.Any("panic", r))
			report.Errors = append(report.Errors, fmt.Errorf("cycle panic: %v", r))
		}
		report.DurationMs = time.Since(start).Milliseconds()
		e.metrics.CycleDone(report.Skipped, time.Since(start).Seconds())
	}()

	snap := e.state.Snapshot()
	rules := snap.Rules
	report.MinutesUsed = snap.MinutesUsed
	report.InternetCut = snap.InternetCut

	if !rules.Enabled {
		report.Skipped = true
		return report
	}

	e.killBlockedApps(ctx, rules, &report)

	// Budget is evaluated up front so a window restore is not immediately
	// undone by a budget cut in the same cycle.
	limit := rules.DailyLimitMinutes
	budgetExhausted := limit > 0 && snap.MinutesUsed+1 >= limit
	allowed := e.evaluator.Allowed(rules.Windows)
	cut := snap.InternetCut

	switch {
	case !allowed && !cut:
		cut = e.cut(ctx, rules, domain.NetworkCutWindow, &report)
	case allowed && cut && e.mayRestore(limit) && !budgetExhausted:
		cut = e.restore(ctx, rules, &report)
	}

	if limit > 0 {
		used := e.state.IncrementMinutes()
		report.MinutesUsed = used
		e.metrics.SetMinutesUsed(used)
		if used >= limit && !cut {
			cut = e.cut(ctx, rules, domain.NetworkCutBudget, &report)
		}
	}
	report.InternetCut = cut

	if len(rules.BlockedSites) > 0 {
		if err := e.blockList.Apply(ctx, rules.BlockedSites); err != nil {
			e.metrics.ActionFailed("blocklist")
			e.logger.Warn("failed to apply block list", zap.Error(err))
			report.Errors = append(report.Errors, err)
		} else {
			report.BlockListFresh = true
		}
	}

	if len(report.KilledApps) > 0 || report.NetworkAction != domain.NetworkUnchanged {
		e.logger.Info("enforcement cycle",
			zap.Strings("killed", report.KilledApps),
			zap.String("network", string(report.NetworkAction)),
			zap.Uint32("minutes_used", report.MinutesUsed))
	}
	return report
}

func (e *EnforcerImpl) mayRestore(limit uint32) bool {
	return e.config.RestorePolicy == RestoreUnconditional || limit == 0
}

func (e *EnforcerImpl) killBlockedApps(ctx context.Context, rules domain.RuleSet, report *domain.CycleReport) {
	if len(rules.BlockedApps) == 0 {
		return
	}

	names, err := e.platform.ListActiveProcessNames(ctx)
	if err != nil {
		e.metrics.ActionFailed("process_list")
		e.logger.Warn("failed to list processes", zap.Error(err))
		report.Errors = append(report.Errors, domain.NewOpError(domain.ErrProcessControl, "list processes", err))
		return
	}

	for _, app := range rules.BlockedApps {
		needle := policy.NormalizeProcessName(app)
		if needle == "" || !anyContains(names, needle) {
			continue
		}

		killed, err := e.platform.TerminateProcess(ctx, app)
		if err != nil {
			e.metrics.ActionFailed("process_kill")
			e.logger.Warn("failed to kill process",
				zap.String("app", app),
				zap.Error(err))
			report.Errors = append(report.Errors, domain.NewOpError(domain.ErrProcessControl, "terminate "+app, err))
			continue
		}
		if !killed {
			continue
		}

		e.metrics.ProcessKilled()
		e.logger.Info("killed blocked app",
			zap.String("profile", rules.ProfileID),
			zap.String("app", app))
		report.KilledApps = append(report.KilledApps, app)
		e.record(ctx, rules.ProfileID, domain.EventAppBlocked, app)
	}
}

func anyContains(names []string, needle string) bool {
	for _, n := range names {
		if strings.Contains(policy.NormalizeProcessName(n), needle) {
			return true
		}
	}
	return false
}

// cut disables the network and returns the resulting cut flag.
func (e *EnforcerImpl) cut(ctx context.Context, rules domain.RuleSet, action domain.NetworkAction, report *domain.CycleReport) bool {
	changed, err := e.state.SetNetwork(ctx, true, false, e.platform.SetNetworkEnabled)
	if err != nil {
		e.metrics.ActionFailed("network")
		e.logger.Warn("failed to cut network", zap.String("reason", string(action)), zap.Error(err))
		report.Errors = append(report.Errors, domain.NewOpError(domain.ErrNetworkToggle, "cut network", err))
	}
	if !changed {
		return e.state.InternetCut()
	}

	report.NetworkAction = action
	e.metrics.NetworkToggled(true, string(action))

	kind, title, msg := domain.EventOutsideWindow, "Internet paused", "Outside the allowed hours."
	if action == domain.NetworkCutBudget {
		kind, title = domain.EventLimitReached, "Screen time is up"
		msg = fmt.Sprintf("Daily limit of %d minutes reached.", rules.DailyLimitMinutes)
	}
	e.record(ctx, rules.ProfileID, kind, msg)
	e.notify(ctx, title, msg)
	return true
}

func (e *EnforcerImpl) restore(ctx context.Context, rules domain.RuleSet, report *domain.CycleReport) bool {
	changed, err := e.state.SetNetwork(ctx, false, false, e.platform.SetNetworkEnabled)
	if err != nil {
		e.metrics.ActionFailed("network")
		e.logger.Warn("failed to restore network", zap.Error(err))
		report.Errors = append(report.Errors, domain.NewOpError(domain.ErrNetworkToggle, "restore network", err))
	}
	if !changed {
		return e.state.InternetCut()
	}

	report.NetworkAction = domain.NetworkRestored
	e.metrics.NetworkToggled(false, "window_open")
	e.record(ctx, rules.ProfileID, domain.EventNetworkRestored, "Back inside an allowed window.")
	return false
}

// ResyncBlockList reapplies the managed section after an external edit.
// It does not wait for a cycle in progress.
func (e *EnforcerImpl) ResyncBlockList(ctx context.Context) error {
	snap := e.state.Snapshot()
	if !snap.Rules.Enabled || len(snap.Rules.BlockedSites) == 0 {
		return nil
	}
	return e.blockList.TryApply(ctx, snap.Rules.BlockedSites)
}

func (e *EnforcerImpl) record(ctx context.Context, profile string, kind domain.EventKind, detail string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, domain.ActivityEvent{ProfileID: profile, Kind: kind, Detail: detail}); err != nil {
		e.logger.Debug("failed to record activity", zap.Error(err))
	}
}

func (e *EnforcerImpl) notify(ctx context.Context, title, msg string) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.NotifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(ctx, title, msg); err != nil {
		e.logger.Debug("notification failed", zap.Error(err))
	}
}

// Ensure EnforcerImpl implements domain.Enforcer.
var _ domain.Enforcer = (*EnforcerImpl)(nil)
