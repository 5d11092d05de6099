package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// DefaultHostsDebounce coalesces the burst of events an editor produces.
const DefaultHostsDebounce = 500 * time.Millisecond

// HostsWatcher re-applies the managed block list as soon as the hosts file
// is edited, instead of waiting for the next cycle.
type HostsWatcher struct {
	path     string
	enforcer domain.Enforcer
	debounce time.Duration
	logger   *zap.Logger
}

// NewHostsWatcher creates a watcher for path.
func NewHostsWatcher(path string, enforcer domain.Enforcer, debounce time.Duration, logger *zap.Logger) *HostsWatcher {
	if debounce <= 0 {
		debounce = DefaultHostsDebounce
	}
	return &HostsWatcher{
		path:     filepath.Clean(path),
		enforcer: enforcer,
		debounce: debounce,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched
// because an atomic replace swaps the file's inode.
func (h *HostsWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}
	h.logger.Info("watching hosts file", zap.String("path", h.path))

	debounce := time.NewTimer(h.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != h.path || event.Op == fsnotify.Chmod {
				continue
			}
			debounce.Reset(h.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("hosts watcher error", zap.Error(err))

		case <-debounce.C:
			h.resync(ctx)
		}
	}
}

func (h *HostsWatcher) resync(ctx context.Context) {
	err := h.enforcer.ResyncBlockList(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLockContention):
		// A cycle is rewriting the file right now.
		h.logger.Debug("hosts resync skipped, block list busy")
	default:
		h.logger.Warn("hosts resync failed", zap.Error(err))
	}
}
