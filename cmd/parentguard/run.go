package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/parentguard/internal/api"
	"github.com/eliteGoblin/focusd/parentguard/internal/config"
	"github.com/eliteGoblin/focusd/parentguard/internal/daemon"
	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/infra"
	"github.com/eliteGoblin/focusd/parentguard/internal/journal"
	"github.com/eliteGoblin/focusd/parentguard/internal/metrics"
	"github.com/eliteGoblin/focusd/parentguard/internal/notify"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
	"github.com/eliteGoblin/focusd/parentguard/internal/usecase"
)

const (
	journalFile   = "journal.db"
	detachLogFile = "parentguard.log"
)

var detach bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enforcement agent",
	Long: `Runs the enforcement loop, the hosts-file watcher and the local
control API until interrupted. Needs root (or an administrator shell)
to edit the hosts file and toggle network interfaces.`,
	RunE: runAgent,
}

func init() {
	runCmd.Flags().BoolVarP(&detach, "detach", "d", false, "start the agent in the background and return")
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	if detach {
		logPath := cfg.Log.File
		if logPath == "" {
			logPath = filepath.Join(cfg.DataDir, detachLogFile)
		}
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		pid, err := daemon.StartDetached(daemon.StripDetachFlag(os.Args[1:]), logPath)
		if err != nil {
			return fmt.Errorf("failed to start agent: %w", err)
		}
		fmt.Printf("parentguard started in the background (pid %d)\n", pid)
		fmt.Printf("Logs: %s\n", logPath)
		return nil
	}

	logger := newLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDaemon(ctx, cfg, logger)
}

func runDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	mode := infra.DetectExecMode()
	logger.Info("starting parentguard",
		zap.String("version", Version),
		zap.String("mode", mode.Mode.String()),
		zap.String("data_dir", cfg.DataDir))
	if !mode.IsRoot {
		logger.Warn("not running elevated; hosts and network changes will fail")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	restore, err := usecase.ParseRestorePolicy(cfg.RestorePolicy)
	if err != nil {
		return err
	}

	m := metrics.New()
	platform := infra.NewPlatform(infra.PlatformConfig{
		HostsPath:  cfg.Hosts.Path,
		Interfaces: cfg.Network.Interfaces,
	}, logger)
	state := usecase.NewState()
	blockList := usecase.NewBlockList(platform, platform, cfg.Hosts.Marker, m, logger.Named("blocklist"))

	jrnl, err := journal.Open(filepath.Join(cfg.DataDir, journalFile), cfg.Journal.MaxEntries)
	if err != nil {
		return fmt.Errorf("failed to open activity journal: %w", err)
	}
	defer jrnl.Close()

	secrets, err := infra.OpenEncryptedStore(cfg.DataDir, infra.NewFileKeyProvider(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}
	defer secrets.Close()

	notifier := notify.NewAsync(notify.New(notify.Config{
		Desktop:      cfg.Notify.Desktop,
		SlackWebhook: cfg.Notify.SlackWebhook,
		MinInterval:  cfg.Notify.MinInterval,
	}, logger.Named("notify")), notify.DefaultQueueSize, notify.DefaultDeliveryTimeout, logger.Named("notify"))

	enforcer := usecase.NewEnforcer(
		usecase.EnforcerConfig{UTCOffsetMinutes: cfg.UTCOffsetMinutes, RestorePolicy: restore},
		state, platform, blockList, policy.SystemClock{}, jrnl, notifier, m, logger.Named("enforcer"))
	service := usecase.NewService(state, platform, blockList, jrnl, m, logger.Named("service"))
	presets := policy.NewRegistry()

	if cfg.RulesFile != "" {
		if err := applyRuleFile(ctx, service, presets, cfg.RulesFile); err != nil {
			logger.Warn("initial rules not fully applied", zap.String("file", cfg.RulesFile), zap.Error(err))
		}
	}

	registry := infra.NewFileRegistry(cfg.DataDir)
	if err := registry.Register(domain.DaemonInfo{
		PID:        os.Getpid(),
		Addr:       cfg.API.Addr,
		AppVersion: Version,
	}); err != nil {
		logger.Warn("failed to register daemon", zap.Error(err))
	}
	defer func() { _ = registry.Clear() }()

	watcher := daemon.NewWatcher(daemon.WatcherConfig{EnforcementInterval: cfg.Interval}, enforcer, registry, logger)
	hostsWatcher := daemon.NewHostsWatcher(platform.HostsFile.Path(), enforcer, daemon.DefaultHostsDebounce, logger)
	server := api.NewServer(api.ServerConfig{
		Addr:      cfg.API.Addr,
		RateLimit: cfg.API.RateLimit,
		Version:   Version,
	}, service, presets, secrets, m.Handler(), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return server.ListenAndServe(gctx) })
	g.Go(func() error { return notifier.Run(gctx) })
	g.Go(func() error {
		// The loop still re-applies the block list every cycle.
		if err := hostsWatcher.Run(gctx); err != nil {
			logger.Warn("hosts watcher stopped", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("agent stopped", zap.Error(err))
		return err
	}
	logger.Info("agent stopped")
	return nil
}

func applyRuleFile(ctx context.Context, svc *usecase.Service, presets *policy.Registry, path string) error {
	spec, err := policy.LoadRuleFile(path)
	if err != nil {
		return err
	}
	rules, err := spec.ToRuleSet(presets)
	if err != nil {
		return err
	}
	_, err = svc.UpdateRules(ctx, rules)
	return err
}
