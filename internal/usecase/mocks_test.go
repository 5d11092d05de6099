package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

// mockPlatform implements domain.Platform in memory.
type mockPlatform struct {
	mu sync.Mutex

	processes []string
	listErr   error
	killErr   error
	killed    []string

	networkCalls []bool // argument of each SetNetworkEnabled call
	networkErr   error

	hosts    string
	readErr  error
	writeErr error
	writes   int
	flushes  int
}

func (m *mockPlatform) ListActiveProcessNames(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]string, len(m.processes))
	for i, p := range m.processes {
		out[i] = policy.NormalizeProcessName(p)
	}
	return out, nil
}

func (m *mockPlatform) TerminateProcess(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.killErr != nil {
		return false, m.killErr
	}
	needle := policy.NormalizeProcessName(name)
	kept := m.processes[:0]
	found := false
	for _, p := range m.processes {
		if strings.Contains(policy.NormalizeProcessName(p), needle) {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	m.processes = kept
	if found {
		m.killed = append(m.killed, name)
	}
	return found, nil
}

func (m *mockPlatform) SetNetworkEnabled(_ context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkCalls = append(m.networkCalls, enabled)
	return m.networkErr
}

func (m *mockPlatform) ReadBlockFile(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hosts, m.readErr
}

func (m *mockPlatform) WriteBlockFile(_ context.Context, contents string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.hosts = contents
	m.writes++
	return nil
}

func (m *mockPlatform) Path() string { return "/etc/hosts" }

func (m *mockPlatform) FlushResolverCache(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

func (m *mockPlatform) calls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.networkCalls...)
}

// mockJournal implements domain.ActivityJournal.
type mockJournal struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (j *mockJournal) Record(_ context.Context, ev domain.ActivityEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *mockJournal) List(_ context.Context, profileID string, limit int) ([]domain.ActivityEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.ActivityEvent
	for i := len(j.events) - 1; i >= 0; i-- {
		if profileID == "" || j.events[i].ProfileID == profileID {
			out = append(out, j.events[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (j *mockJournal) kinds() []domain.EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.EventKind
	for _, ev := range j.events {
		out = append(out, ev.Kind)
	}
	return out
}

// mockNotifier implements domain.Notifier.
type mockNotifier struct {
	titles []string
}

func (n *mockNotifier) Notify(_ context.Context, title, _ string) error {
	n.titles = append(n.titles, title)
	return nil
}

// blockingNotifier holds every alert until its context ends.
type blockingNotifier struct{}

func (blockingNotifier) Notify(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// fixture wires an enforcer and a service around one mock platform.
type fixture struct {
	platform *mockPlatform
	state    *State
	clock    *policy.ManualClock
	journal  *mockJournal
	notifier *mockNotifier
	enforcer *EnforcerImpl
	service  *Service
}

// friday4pm is 2024-03-15 16:00 UTC, weekday 5.
var friday4pm = time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)

func newFixture(restore RestorePolicy) *fixture {
	f := &fixture{
		platform: &mockPlatform{},
		state:    NewState(),
		clock:    policy.NewManualClock(friday4pm),
		journal:  &mockJournal{},
		notifier: &mockNotifier{},
	}
	logger := zap.NewNop()
	bl := NewBlockList(f.platform, f.platform, "", nil, logger)
	f.enforcer = NewEnforcer(EnforcerConfig{RestorePolicy: restore}, f.state, f.platform, bl, f.clock, f.journal, f.notifier, nil, logger)
	f.service = NewService(f.state, f.platform, bl, f.journal, nil, logger)
	return f
}

func (f *fixture) runCycles(n int) domain.CycleReport {
	var last domain.CycleReport
	for i := 0; i < n; i++ {
		last = f.enforcer.RunCycle(context.Background())
	}
	return last
}
