package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/metrics"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

// Service is the command surface used by the control API. Commands run
// synchronously and surface failures to the caller, unlike the loop.
type Service struct {
	state     *State
	platform  domain.Platform
	blockList *BlockList
	journal   domain.ActivityJournal
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates the command surface. journal may be nil.
func NewService(state *State, platform domain.Platform, blockList *BlockList, journal domain.ActivityJournal, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		state:     state,
		platform:  platform,
		blockList: blockList,
		journal:   journal,
		metrics:   m,
		logger:    logger,
	}
}

// UpdateRules applies the block list right away, installs rules and
// resets usage. The rules are installed even if the hosts file could not
// be written; the loop retries the block list every cycle.
func (s *Service) UpdateRules(ctx context.Context, rules domain.RuleSet) (string, error) {
	var err error
	if len(rules.BlockedSites) > 0 {
		err = s.blockList.Apply(ctx, rules.BlockedSites)
	} else {
		err = s.blockList.Remove(ctx)
	}

	s.state.ReplaceRules(rules)
	s.metrics.SetMinutesUsed(0)
	s.record(ctx, domain.EventRulesUpdated, fmt.Sprintf("%d apps, %d sites, limit %d min, %d windows",
		len(rules.BlockedApps), len(rules.BlockedSites), rules.DailyLimitMinutes, len(rules.Windows)))
	s.logger.Info("rules updated",
		zap.String("profile", rules.ProfileID),
		zap.Bool("enabled", rules.Enabled),
		zap.Uint32("daily_limit_minutes", rules.DailyLimitMinutes))

	if err != nil {
		return "", fmt.Errorf("rules updated but the block list could not be written: %w", err)
	}
	return "rules updated", nil
}

// ScreenTime returns the budget minutes used so far.
func (s *Service) ScreenTime() uint32 {
	return s.state.MinutesUsed()
}

// Status returns a snapshot of the whole monitoring state.
func (s *Service) Status() domain.MonitoringState {
	return s.state.Snapshot()
}

func (s *Service) StartMonitoring(ctx context.Context) (string, error) {
	if !s.state.SetEnabled(true) {
		s.record(ctx, domain.EventMonitoringStarted, "")
		s.logger.Info("monitoring started")
	}
	return "monitoring started", nil
}

// StopMonitoring disables enforcement, restores a cut network once and
// removes the block list.
func (s *Service) StopMonitoring(ctx context.Context) (string, error) {
	if s.state.SetEnabled(false) {
		s.record(ctx, domain.EventMonitoringStopped, "")
		s.logger.Info("monitoring stopped")
	}

	var errs []error
	restored, err := s.state.SetNetwork(ctx, false, false, s.platform.SetNetworkEnabled)
	if restored {
		s.metrics.NetworkToggled(false, "monitoring_stopped")
	}
	if err != nil {
		errs = append(errs, domain.NewOpError(domain.ErrNetworkToggle, "restore network", err))
	}
	if err := s.blockList.Remove(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("monitoring stopped with errors: %w", errors.Join(errs...))
	}
	return "monitoring stopped", nil
}

// BlockSite blocks one domain immediately and adds it to the active rules
// so the loop keeps it blocked.
func (s *Service) BlockSite(ctx context.Context, site string) (string, error) {
	d := policy.NormalizeSite(site)
	if d == "" {
		return "", fmt.Errorf("%w: domain %q", domain.ErrInvalidInput, site)
	}
	if err := s.blockList.Block(ctx, d); err != nil {
		return "", err
	}
	s.state.AddSite(d)
	s.record(ctx, domain.EventSiteBlocked, d)
	return d + " blocked", nil
}

// UnblockSite removes one domain from the hosts file and the active rules.
func (s *Service) UnblockSite(ctx context.Context, site string) (string, error) {
	d := policy.NormalizeSite(site)
	if d == "" {
		return "", fmt.Errorf("%w: domain %q", domain.ErrInvalidInput, site)
	}
	if err := s.blockList.Unblock(ctx, d); err != nil {
		return "", err
	}
	s.state.RemoveSite(d)
	s.record(ctx, domain.EventSiteUnblocked, d)
	return d + " unblocked", nil
}

// KillProcess terminates processes matching name.
func (s *Service) KillProcess(ctx context.Context, name string) (string, error) {
	killed, err := s.platform.TerminateProcess(ctx, name)
	if err != nil {
		return "", domain.NewOpError(domain.ErrProcessControl, "terminate "+name, err)
	}
	if !killed {
		return "", domain.NewOpError(domain.ErrProcessControl, "terminate "+name, domain.ErrProcessNotFound)
	}
	s.metrics.ProcessKilled()
	s.record(ctx, domain.EventAppBlocked, name)
	return name + " terminated", nil
}

// ListProcesses returns sorted, de-duplicated process names.
func (s *Service) ListProcesses(ctx context.Context) ([]string, error) {
	names, err := s.platform.ListActiveProcessNames(ctx)
	if err != nil {
		return nil, domain.NewOpError(domain.ErrProcessControl, "list processes", err)
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// CutInternet cuts the network even if the flag says it is already cut.
func (s *Service) CutInternet(ctx context.Context) (string, error) {
	return s.toggle(ctx, true)
}

// RestoreInternet restores the network even if the flag says it is up.
func (s *Service) RestoreInternet(ctx context.Context) (string, error) {
	return s.toggle(ctx, false)
}

func (s *Service) toggle(ctx context.Context, cut bool) (string, error) {
	_, err := s.state.SetNetwork(ctx, cut, true, s.platform.SetNetworkEnabled)
	s.metrics.NetworkToggled(cut, "manual")

	action := "restore"
	if cut {
		action = "cut"
	}
	s.logger.Info("manual network toggle", zap.String("action", action), zap.Error(err))
	if err != nil {
		return "", domain.NewOpError(domain.ErrNetworkToggle, action+" network", err)
	}
	if cut {
		return "internet cut", nil
	}
	return "internet restored", nil
}

// Activity returns journal entries, newest first.
func (s *Service) Activity(ctx context.Context, profileID string, limit int) ([]domain.ActivityEvent, error) {
	if s.journal == nil {
		return []domain.ActivityEvent{}, nil
	}
	return s.journal.List(ctx, profileID, limit)
}

func (s *Service) record(ctx context.Context, kind domain.EventKind, detail string) {
	if s.journal == nil {
		return
	}
	ev := domain.ActivityEvent{ProfileID: s.state.ProfileID(), Kind: kind, Detail: detail}
	if err := s.journal.Record(ctx, ev); err != nil {
		s.logger.Debug("failed to record activity", zap.Error(err))
	}
}
