package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

func TestService_UpdateRulesResetsUsage(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.hosts = baseHosts
	f.state.ReplaceRules(domain.RuleSet{DailyLimitMinutes: 100, Enabled: true})
	f.runCycles(3)
	require.Equal(t, uint32(3), f.service.ScreenTime())

	msg, err := f.service.UpdateRules(context.Background(), domain.RuleSet{
		ProfileID:         "kid",
		BlockedSites:      []string{"a.com"},
		DailyLimitMinutes: 60,
		Enabled:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, "rules updated", msg)
	assert.Equal(t, uint32(0), f.service.ScreenTime())
	assert.Equal(t, []string{"a.com"}, ManagedSites(f.platform.hosts, DefaultMarker), "applied before the next cycle")
	assert.Equal(t, "kid", f.service.Status().Rules.ProfileID)
}

func TestService_UpdateRulesWithoutSitesRemovesBlockList(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.hosts = baseHosts
	_, err := f.service.UpdateRules(context.Background(), domain.RuleSet{BlockedSites: []string{"a.com"}, Enabled: true})
	require.NoError(t, err)

	_, err = f.service.UpdateRules(context.Background(), domain.RuleSet{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, baseHosts, f.platform.hosts)
}

func TestService_UpdateRulesInstallsDespiteWriteFailure(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.writeErr = errors.New("read-only file system")

	_, err := f.service.UpdateRules(context.Background(), domain.RuleSet{BlockedSites: []string{"a.com"}, Enabled: true})
	assert.ErrorIs(t, err, domain.ErrFileAccess)
	assert.Equal(t, []string{"a.com"}, f.service.Status().Rules.BlockedSites)
}

func TestService_StopMonitoring(t *testing.T) {
	t.Run("restores a cut network once", func(t *testing.T) {
		f := newFixture(RestoreUnconditional)
		f.platform.hosts = baseHosts
		f.state.ReplaceRules(domain.RuleSet{BlockedSites: []string{"a.com"}, Windows: morning, Enabled: true})
		f.runCycles(1)
		require.True(t, f.state.InternetCut())

		msg, err := f.service.StopMonitoring(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "monitoring stopped", msg)
		assert.False(t, f.state.InternetCut())
		assert.Equal(t, []bool{false, true}, f.platform.calls())
		assert.Equal(t, baseHosts, f.platform.hosts)

		_, err = f.service.StopMonitoring(context.Background())
		require.NoError(t, err)
		assert.Len(t, f.platform.calls(), 2, "second stop does not toggle")
	})

	t.Run("leaves an uncut network alone", func(t *testing.T) {
		f := newFixture(RestoreUnconditional)
		f.state.ReplaceRules(domain.RuleSet{Enabled: true})

		_, err := f.service.StopMonitoring(context.Background())
		require.NoError(t, err)
		assert.Empty(t, f.platform.calls())
		assert.True(t, f.enforcer.RunCycle(context.Background()).Skipped)
	})

	t.Run("reports toggle failure", func(t *testing.T) {
		f := newFixture(RestoreUnconditional)
		f.state.ReplaceRules(domain.RuleSet{Windows: morning, Enabled: true})
		f.runCycles(1)
		f.platform.networkErr = errors.New("adapter busy")

		_, err := f.service.StopMonitoring(context.Background())
		assert.ErrorIs(t, err, domain.ErrNetworkToggle)
		assert.False(t, f.service.Status().Rules.Enabled)
	})
}

func TestService_StartMonitoring(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	msg, err := f.service.StartMonitoring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "monitoring started", msg)
	assert.True(t, f.service.Status().Rules.Enabled)

	_, _ = f.service.StartMonitoring(context.Background())
	assert.Equal(t, []domain.EventKind{domain.EventMonitoringStarted}, f.journal.kinds())
}

func TestService_ManualToggleIsForced(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	ctx := context.Background()

	msg, err := f.service.CutInternet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "internet cut", msg)
	_, err = f.service.CutInternet(ctx)
	require.NoError(t, err)

	msg, err = f.service.RestoreInternet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "internet restored", msg)

	assert.Equal(t, []bool{false, false, true}, f.platform.calls())
	assert.False(t, f.state.InternetCut())
}

func TestService_ManualToggleFailure(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.networkErr = errors.New("no such device")

	_, err := f.service.CutInternet(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetworkToggle)
	assert.True(t, f.state.InternetCut())
}

func TestService_BlockAndUnblockSite(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.hosts = baseHosts
	ctx := context.Background()

	msg, err := f.service.BlockSite(ctx, "https://www.Example.com/watch")
	require.NoError(t, err)
	assert.Equal(t, "example.com blocked", msg)
	assert.Contains(t, f.service.Status().Rules.BlockedSites, "example.com")

	msg, err = f.service.UnblockSite(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com unblocked", msg)
	assert.NotContains(t, f.platform.hosts, "example.com")
	assert.Empty(t, f.service.Status().Rules.BlockedSites)

	_, err = f.service.BlockSite(ctx, "")
	assert.Error(t, err)
}

// A manually blocked site survives the next cycle's reconciliation.
func TestService_BlockedSiteSurvivesCycle(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.hosts = baseHosts
	f.state.ReplaceRules(domain.RuleSet{BlockedSites: []string{"a.com"}, Enabled: true})

	_, err := f.service.BlockSite(context.Background(), "b.com")
	require.NoError(t, err)
	f.runCycles(1)
	assert.Equal(t, []string{"a.com", "b.com"}, ManagedSites(f.platform.hosts, DefaultMarker))
}

func TestService_KillProcess(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.processes = []string{"Dota2", "chrome"}

	msg, err := f.service.KillProcess(context.Background(), "dota")
	require.NoError(t, err)
	assert.Equal(t, "dota terminated", msg)

	_, err = f.service.KillProcess(context.Background(), "dota")
	assert.ErrorIs(t, err, domain.ErrProcessNotFound)
	assert.ErrorIs(t, err, domain.ErrProcessControl)
}

func TestService_ListProcesses(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.platform.processes = []string{"zsh", "Chrome", "chrome", "bash"}

	names, err := f.service.ListProcesses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bash", "chrome", "zsh"}, names)

	f.platform.listErr = errors.New("boom")
	_, err = f.service.ListProcesses(context.Background())
	assert.ErrorIs(t, err, domain.ErrProcessControl)
}

func TestService_Activity(t *testing.T) {
	f := newFixture(RestoreUnconditional)
	f.state.ReplaceRules(domain.RuleSet{ProfileID: "kid"})
	_, _ = f.service.StartMonitoring(context.Background())
	_, _ = f.service.StopMonitoring(context.Background())

	events, err := f.service.Activity(context.Background(), "kid", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventMonitoringStopped, events[0].Kind)

	s := NewService(f.state, f.platform, f.enforcer.blockList, nil, nil, f.enforcer.logger)
	events, err = s.Activity(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
