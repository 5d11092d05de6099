package infra

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

func newTestSupervisor(procs map[int32]*fakeProc) *ProcessSupervisor {
	s := NewProcessSupervisor(zap.NewNop())
	s.selfPID = 1
	s.list = fakeTable(procs)
	return s
}

func TestProcessSupervisor_ListActiveProcessNames(t *testing.T) {
	s := newTestSupervisor(map[int32]*fakeProc{
		1:  {name: "parentguard"},
		10: {name: "Steam.exe"},
		11: {name: "Minecraft.app"},
		12: {name: "bash"},
		13: {name: "gone", nameErr: errors.New("exited")},
	})

	names, err := s.ListActiveProcessNames(context.Background())
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"bash", "minecraft", "steam"}, names)
}

func TestProcessSupervisor_TerminateProcess(t *testing.T) {
	self := &fakeProc{name: "steam-watcher"}
	steam := &fakeProc{name: "Steam"}
	helper := &fakeProc{name: "steamwebhelper"}
	chrome := &fakeProc{name: "chrome"}
	s := newTestSupervisor(map[int32]*fakeProc{1: self, 10: steam, 11: helper, 12: chrome})

	killed, err := s.TerminateProcess(context.Background(), "Steam.exe")
	require.NoError(t, err)
	assert.True(t, killed)
	assert.True(t, steam.killed)
	assert.True(t, helper.killed)
	assert.False(t, chrome.killed)
	assert.False(t, self.killed, "never kills itself")
}

func TestProcessSupervisor_TerminateNoMatch(t *testing.T) {
	s := newTestSupervisor(map[int32]*fakeProc{10: {name: "bash"}})

	killed, err := s.TerminateProcess(context.Background(), "fortnite")
	require.NoError(t, err)
	assert.False(t, killed)

	killed, err = s.TerminateProcess(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, killed)
}

func TestProcessSupervisor_TerminateErrors(t *testing.T) {
	s := newTestSupervisor(map[int32]*fakeProc{
		10: {name: "dota2", killErr: errors.New("operation not permitted")},
		11: {name: "dota2", killErr: process.ErrorProcessNotRunning},
	})

	killed, err := s.TerminateProcess(context.Background(), "dota2")
	assert.True(t, killed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation not permitted")
	assert.NotContains(t, err.Error(), "does not exist", "already-exited processes are ignored")
}

func TestProcessSupervisor_ListError(t *testing.T) {
	s := NewProcessSupervisor(zap.NewNop())
	s.list = func(context.Context) ([]procEntry, error) { return nil, errFailingTable }

	_, err := s.ListActiveProcessNames(context.Background())
	assert.ErrorIs(t, err, errFailingTable)
	_, err = s.TerminateProcess(context.Background(), "x")
	assert.ErrorIs(t, err, errFailingTable)
}

func TestProcessSupervisor_LiveTable(t *testing.T) {
	names, err := NewProcessSupervisor(zap.NewNop()).ListActiveProcessNames(context.Background())
	require.NoError(t, err)
	for _, n := range names {
		assert.Equal(t, policy.NormalizeProcessName(n), n)
	}
}
