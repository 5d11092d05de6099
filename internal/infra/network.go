package infra

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// ErrUnsupportedPlatform is returned by capabilities this OS has no
// implementation for.
var ErrUnsupportedPlatform = errors.New("not supported on this platform")

// NetworkSwitch implements domain.NetworkToggle by bringing network
// interfaces up or down with the platform's own tooling (ip, networksetup,
// netsh). The command for each OS lives in network_<goos>.go.
type NetworkSwitch struct {
	runner     CommandRunner
	interfaces []string
	detect     func(ctx context.Context) ([]string, error)
	logger     *zap.Logger
}

// NewNetworkSwitch creates a switch. An empty interface list toggles the
// platform default interfaces.
func NewNetworkSwitch(runner CommandRunner, interfaces []string, logger *zap.Logger) *NetworkSwitch {
	return &NetworkSwitch{
		runner:     runner,
		interfaces: interfaces,
		detect:     defaultInterfaces,
		logger:     logger,
	}
}

// SetNetworkEnabled toggles every interface. It fails only when no
// interface could be toggled: a machine rarely has all the defaults.
func (n *NetworkSwitch) SetNetworkEnabled(ctx context.Context, enabled bool) error {
	ifaces := n.interfaces
	if len(ifaces) == 0 {
		detected, err := n.detect(ctx)
		if err != nil {
			return fmt.Errorf("detect interfaces: %w", err)
		}
		ifaces = detected
	}
	if len(ifaces) == 0 {
		return errors.New("no network interface to toggle")
	}

	var errs []error
	for _, iface := range ifaces {
		argv := interfaceCommand(iface, enabled)
		if len(argv) == 0 {
			return ErrUnsupportedPlatform
		}
		if err := n.runner.Run(ctx, argv[0], argv[1:]...); err != nil {
			n.logger.Debug("interface toggle failed",
				zap.String("interface", iface),
				zap.Bool("enabled", enabled),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(ifaces) {
		return errors.Join(errs...)
	}
	return nil
}

// ResolverFlusher implements domain.ResolverCache.
type ResolverFlusher struct {
	runner CommandRunner
}

// NewResolverFlusher creates a flusher.
func NewResolverFlusher(runner CommandRunner) *ResolverFlusher {
	return &ResolverFlusher{runner: runner}
}

// FlushResolverCache runs the platform's flush commands. All are
// attempted; failures are joined.
func (r *ResolverFlusher) FlushResolverCache(ctx context.Context) error {
	var errs []error
	for _, argv := range resolverFlushCommands() {
		if err := r.runner.Run(ctx, argv[0], argv[1:]...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.NetworkToggle = (*NetworkSwitch)(nil)
	_ domain.ResolverCache = (*ResolverFlusher)(nil)
)
