// Package infra implements the OS-facing capabilities: processes, network
// interfaces, the hosts file, the resolver cache and local storage.
package infra

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

// proc is the part of *process.Process the supervisor needs.
type proc interface {
	NameWithContext(ctx context.Context) (string, error)
	KillWithContext(ctx context.Context) error
}

type procEntry struct {
	pid  int32
	proc proc
}

// ProcessSupervisor implements domain.ProcessSupervisor using gopsutil.
type ProcessSupervisor struct {
	selfPID int32
	list    func(ctx context.Context) ([]procEntry, error)
	logger  *zap.Logger
}

// NewProcessSupervisor creates a supervisor over the live process table.
func NewProcessSupervisor(logger *zap.Logger) *ProcessSupervisor {
	return &ProcessSupervisor{
		selfPID: int32(os.Getpid()),
		list:    listProcesses,
		logger:  logger,
	}
}

func listProcesses(ctx context.Context) ([]procEntry, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]procEntry, 0, len(procs))
	for _, p := range procs {
		out = append(out, procEntry{pid: p.Pid, proc: p})
	}
	return out, nil
}

// ListActiveProcessNames returns the normalized name of every process
// except this one. Processes that exit mid-scan are skipped.
func (s *ProcessSupervisor) ListActiveProcessNames(ctx context.Context) ([]string, error) {
	procs, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		if p.pid == s.selfPID {
			continue
		}
		name, err := p.proc.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		names = append(names, policy.NormalizeProcessName(name))
	}
	return names, nil
}

// TerminateProcess kills every process whose normalized name contains
// name. It reports whether any process matched; kill failures are joined.
func (s *ProcessSupervisor) TerminateProcess(ctx context.Context, name string) (bool, error) {
	needle := policy.NormalizeProcessName(name)
	if needle == "" {
		return false, nil
	}

	procs, err := s.list(ctx)
	if err != nil {
		return false, err
	}

	var (
		matched bool
		errs    []error
	)
	for _, p := range procs {
		if p.pid == s.selfPID {
			continue
		}
		pname, err := p.proc.NameWithContext(ctx)
		if err != nil || !strings.Contains(policy.NormalizeProcessName(pname), needle) {
			continue
		}

		matched = true
		if err := p.proc.KillWithContext(ctx); err != nil {
			if errors.Is(err, process.ErrorProcessNotRunning) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("process killed",
			zap.Int32("pid", p.pid),
			zap.String("name", pname))
	}
	return matched, errors.Join(errs...)
}

var _ domain.ProcessSupervisor = (*ProcessSupervisor)(nil)
