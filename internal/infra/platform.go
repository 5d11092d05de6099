package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// PlatformConfig selects the OS resources the platform touches.
type PlatformConfig struct {
	HostsPath  string   // empty = DefaultHostsPath()
	Interfaces []string // empty = platform default interfaces
}

// Platform bundles the OS capabilities into one domain.Platform.
type Platform struct {
	*ProcessSupervisor
	*NetworkSwitch
	*HostsFile
	*ResolverFlusher
}

// NewPlatform wires the real implementations for this OS.
func NewPlatform(cfg PlatformConfig, logger *zap.Logger) *Platform {
	return NewPlatformWithRunner(cfg, ExecRunner{}, logger)
}

// NewPlatformWithRunner is NewPlatform with an injectable command runner.
func NewPlatformWithRunner(cfg PlatformConfig, runner CommandRunner, logger *zap.Logger) *Platform {
	return &Platform{
		ProcessSupervisor: NewProcessSupervisor(logger.Named("process")),
		NetworkSwitch:     NewNetworkSwitch(runner, cfg.Interfaces, logger.Named("network")),
		HostsFile:         NewHostsFile(cfg.HostsPath, logger.Named("hosts")),
		ResolverFlusher:   NewResolverFlusher(runner),
	}
}

var _ domain.Platform = (*Platform)(nil)
