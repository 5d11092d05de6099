// Package daemon runs the enforcement scheduler and the hosts file
// watcher inside the agent process.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

// WatcherConfig holds scheduler configuration.
type WatcherConfig struct {
	EnforcementInterval time.Duration // one budget minute per cycle is counted regardless of this value
	HeartbeatInterval   time.Duration // how often to update the registry heartbeat
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		EnforcementInterval: policy.DefaultInterval,
		HeartbeatInterval:   30 * time.Second,
	}
}

// Ticker is the part of *time.Ticker the watcher uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Watcher drives the enforcement loop: one cycle per tick until the
// context is cancelled. Stopping monitoring does not stop the watcher; a
// disabled rule set makes each cycle a no-op.
type Watcher struct {
	config    WatcherConfig
	enforcer  domain.Enforcer
	registry  domain.DaemonRegistry
	logger    *zap.Logger
	newTicker func(time.Duration) Ticker
}

// NewWatcher creates the scheduler. registry may be nil.
func NewWatcher(config WatcherConfig, enforcer domain.Enforcer, registry domain.DaemonRegistry, logger *zap.Logger) *Watcher {
	if config.EnforcementInterval <= 0 {
		config.EnforcementInterval = policy.DefaultInterval
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	return &Watcher{
		config:    config,
		enforcer:  enforcer,
		registry:  registry,
		logger:    logger,
		newTicker: NewRealTicker,
	}
}

// Run blocks until ctx is cancelled. The first cycle runs one interval
// after start, so startup does not count a budget minute.
func (w *Watcher) Run(ctx context.Context) error {
	enforceTicker := w.newTicker(w.config.EnforcementInterval)
	defer enforceTicker.Stop()

	var heartbeat <-chan time.Time
	if w.registry != nil {
		heartbeatTicker := w.newTicker(w.config.HeartbeatInterval)
		defer heartbeatTicker.Stop()
		heartbeat = heartbeatTicker.C()
	}

	w.logger.Info("enforcement loop started",
		zap.Duration("interval", w.config.EnforcementInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("enforcement loop stopping")
			return nil

		case <-enforceTicker.C():
			w.runCycle(ctx)

		case <-heartbeat:
			if err := w.registry.UpdateHeartbeat(); err != nil {
				w.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) runCycle(ctx context.Context) {
	report := w.enforcer.RunCycle(ctx)
	if report.Skipped {
		w.logger.Debug("monitoring disabled, cycle skipped")
		return
	}
	if len(report.Errors) > 0 {
		w.logger.Warn("enforcement cycle completed with errors",
			zap.Int("errors", len(report.Errors)),
			zap.Errors("causes", report.Errors))
		return
	}
	w.logger.Debug("enforcement cycle completed",
		zap.Uint32("minutes_used", report.MinutesUsed),
		zap.Bool("internet_cut", report.InternetCut),
		zap.Int64("duration_ms", report.DurationMs))
}
