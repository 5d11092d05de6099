package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

func startHostsWatcher(t *testing.T, enf domain.Enforcer) (string, func()) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 localhost\n"), 0o644))

	hw := NewHostsWatcher(path, enf, 20*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hw.Run(ctx) }()

	// Give the watcher time to register before the test edits files.
	time.Sleep(50 * time.Millisecond)
	return path, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestHostsWatcher_ResyncsOnEdit(t *testing.T) {
	enf := &countingEnforcer{}
	path, stop := startHostsWatcher(t, enf)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 localhost\n# hand edit\n"), 0o644))

	assert.Eventually(t, func() bool { return enf.resyncs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHostsWatcher_DebouncesBursts(t *testing.T) {
	enf := &countingEnforcer{}
	path, stop := startHostsWatcher(t, enf)
	defer stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("edit\n"), 0o644))
	}

	assert.Eventually(t, func() bool { return enf.resyncs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), enf.resyncs.Load())
}

func TestHostsWatcher_IgnoresSiblings(t *testing.T) {
	enf := &countingEnforcer{}
	path, stop := startHostsWatcher(t, enf)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "hosts.allow"), []byte("x\n"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), enf.resyncs.Load())
}

func TestHostsWatcher_SurvivesResyncErrors(t *testing.T) {
	enf := &countingEnforcer{resync: domain.ErrLockContention}
	path, stop := startHostsWatcher(t, enf)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))
	assert.Eventually(t, func() bool { return enf.resyncs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("b\n"), 0o644))
	assert.Eventually(t, func() bool { return enf.resyncs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestHostsWatcher_MissingDirectory(t *testing.T) {
	hw := NewHostsWatcher(filepath.Join(t.TempDir(), "nope", "hosts"), &countingEnforcer{}, 0, zap.NewNop())
	assert.Error(t, hw.Run(context.Background()))
}
