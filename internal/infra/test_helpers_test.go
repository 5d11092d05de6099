package infra

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// fakeRunner records commands instead of executing them.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	// fail makes any command containing the key fail with the value.
	fail map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)
	for k, err := range f.fail {
		if strings.Contains(line, k) {
			return err
		}
	}
	return nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeProc is a process table entry.
type fakeProc struct {
	name    string
	nameErr error
	killErr error
	killed  bool
}

func (p *fakeProc) NameWithContext(context.Context) (string, error) {
	return p.name, p.nameErr
}

func (p *fakeProc) KillWithContext(context.Context) error {
	if p.killErr != nil {
		return p.killErr
	}
	p.killed = true
	return nil
}

func fakeTable(procs map[int32]*fakeProc) func(context.Context) ([]procEntry, error) {
	return func(context.Context) ([]procEntry, error) {
		out := make([]procEntry, 0, len(procs))
		for pid, p := range procs {
			out = append(out, procEntry{pid: pid, proc: p})
		}
		return out, nil
	}
}

var errFailingTable = errors.New("process table unavailable")
