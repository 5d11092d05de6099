// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/infra"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

// BaseHosts is a typical unmanaged hosts file.
const BaseHosts = `127.0.0.1	localhost
::1	localhost ip6-localhost ip6-loopback
192.168.1.10	nas.lan
`

// FakeDevice is a domain.Platform backed by a real hosts file in a temp
// directory and an in-memory process table and network adapter.
type FakeDevice struct {
	*infra.HostsFile

	mu        sync.Mutex
	processes []string
	networkUp bool
	toggles   []bool
	flushes   int
}

var _ domain.Platform = (*FakeDevice)(nil)

// NewFakeDevice writes BaseHosts under dir and starts the given processes.
func NewFakeDevice(dir string, processes ...string) (*FakeDevice, error) {
	path := filepath.Join(dir, "hosts")
	if err := os.WriteFile(path, []byte(BaseHosts), 0o644); err != nil {
		return nil, err
	}
	return &FakeDevice{
		HostsFile: infra.NewHostsFile(path, zap.NewNop()),
		processes: slices.Clone(processes),
		networkUp: true,
	}, nil
}

func (d *FakeDevice) ListActiveProcessNames(context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.processes))
	for i, p := range d.processes {
		names[i] = policy.NormalizeProcessName(p)
	}
	return names, nil
}

// TerminateProcess removes every process whose name contains name.
func (d *FakeDevice) TerminateProcess(_ context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	needle := policy.NormalizeProcessName(name)
	before := len(d.processes)
	d.processes = slices.DeleteFunc(d.processes, func(p string) bool {
		return strings.Contains(policy.NormalizeProcessName(p), needle)
	})
	return len(d.processes) < before, nil
}

func (d *FakeDevice) SetNetworkEnabled(_ context.Context, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.networkUp = enabled
	d.toggles = append(d.toggles, enabled)
	return nil
}

func (d *FakeDevice) FlushResolverCache(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes++
	return nil
}

// Start launches another fake process.
func (d *FakeDevice) Start(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processes = append(d.processes, name)
}

func (d *FakeDevice) Running(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.ContainsFunc(d.processes, func(p string) bool {
		return policy.NormalizeProcessName(p) == policy.NormalizeProcessName(name)
	})
}

func (d *FakeDevice) NetworkUp() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.networkUp
}

// Toggles returns every SetNetworkEnabled argument in call order.
func (d *FakeDevice) Toggles() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.toggles)
}

// Hosts returns the current hosts file contents.
func (d *FakeDevice) Hosts() string {
	data, _ := os.ReadFile(d.Path())
	return string(data)
}

// RuleFile returns the path of a rule file under testdata.
func RuleFile(name string) string {
	_, self, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(self), "testdata", name)
}
