//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/parentguard/internal/api"
	"github.com/eliteGoblin/focusd/parentguard/internal/daemon"
	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/infra"
	"github.com/eliteGoblin/focusd/parentguard/internal/journal"
	"github.com/eliteGoblin/focusd/parentguard/internal/metrics"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
	"github.com/eliteGoblin/focusd/parentguard/internal/usecase"
	"github.com/eliteGoblin/focusd/parentguard/test/fixtures"
)

// friday4pm is inside the fixture's all-day window.
var friday4pm = time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)

type agent struct {
	dir       string
	device    *fixtures.FakeDevice
	clock     *policy.ManualClock
	journal   *journal.SQLiteJournal
	enforcer  *usecase.EnforcerImpl
	service   *usecase.Service
	presets   *policy.Registry
	blockList *usecase.BlockList
}

func newAgent(processes ...string) *agent {
	dir, err := os.MkdirTemp("", "parentguard-integration-*")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)

	device, err := fixtures.NewFakeDevice(dir, processes...)
	Expect(err).NotTo(HaveOccurred())

	jrnl, err := journal.Open(filepath.Join(dir, "journal.db"), 100)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(jrnl.Close)

	logger := zap.NewNop()
	m := metrics.New()
	state := usecase.NewState()
	clock := policy.NewManualClock(friday4pm)
	blockList := usecase.NewBlockList(device, device, "", m, logger)

	return &agent{
		dir:       dir,
		device:    device,
		clock:     clock,
		journal:   jrnl,
		blockList: blockList,
		presets:   policy.NewRegistry(),
		enforcer: usecase.NewEnforcer(usecase.EnforcerConfig{}, state, device, blockList,
			clock, jrnl, nil, m, logger),
		service: usecase.NewService(state, device, blockList, jrnl, m, logger),
	}
}

func (a *agent) applyFixture(name string) {
	spec, err := policy.LoadRuleFile(fixtures.RuleFile(name))
	Expect(err).NotTo(HaveOccurred())
	rules, err := spec.ToRuleSet(a.presets)
	Expect(err).NotTo(HaveOccurred())
	_, err = a.service.UpdateRules(context.Background(), rules)
	Expect(err).NotTo(HaveOccurred())
}

func (a *agent) cycle() domain.CycleReport {
	report := a.enforcer.RunCycle(context.Background())
	a.clock.Advance(time.Minute)
	return report
}

var _ = Describe("Enforcement agent", func() {
	var a *agent

	BeforeEach(func() {
		a = newAgent("firefox", "steamwebhelper", "Minecraft.exe")
	})

	Describe("applying a rule file", func() {
		It("blocks the listed and preset sites in the hosts file", func() {
			a.applyFixture("kid.yaml")

			hosts := a.device.Hosts()
			Expect(hosts).To(HavePrefix(fixtures.BaseHosts))
			for _, site := range []string{"reddit.com", "www.reddit.com", "tiktok.com", "steampowered.com"} {
				Expect(hosts).To(ContainSubstring("127.0.0.1 " + site + " # ParentGuard"))
			}
		})

		It("terminates blocked apps on the next cycle", func() {
			a.applyFixture("kid.yaml")

			report := a.cycle()
			Expect(report.Errors).To(BeEmpty())
			Expect(a.device.Running("firefox")).To(BeTrue())
			Expect(a.device.Running("steamwebhelper")).To(BeFalse())
			Expect(a.device.Running("minecraft")).To(BeFalse())
		})
	})

	Describe("the daily budget", func() {
		It("cuts the network once when the budget is used up", func() {
			a.applyFixture("kid.yaml")

			a.cycle()
			a.cycle()
			Expect(a.device.NetworkUp()).To(BeTrue())

			report := a.cycle()
			Expect(report.NetworkAction).To(Equal(domain.NetworkCutBudget))
			Expect(a.device.NetworkUp()).To(BeFalse())

			a.cycle()
			a.cycle()
			Expect(a.device.Toggles()).To(Equal([]bool{false}))
			Expect(a.service.ScreenTime()).To(Equal(uint32(5)))
		})

		It("records the enforcement in the journal", func() {
			a.applyFixture("kid.yaml")
			for i := 0; i < 3; i++ {
				a.cycle()
			}

			events, err := a.service.Activity(context.Background(), "kid", 50)
			Expect(err).NotTo(HaveOccurred())
			var kinds []domain.EventKind
			for _, ev := range events {
				kinds = append(kinds, ev.Kind)
			}
			Expect(kinds).To(ContainElements(domain.EventRulesUpdated, domain.EventAppBlocked, domain.EventLimitReached))
		})

		It("restores the network when monitoring stops", func() {
			a.applyFixture("kid.yaml")
			for i := 0; i < 3; i++ {
				a.cycle()
			}

			_, err := a.service.StopMonitoring(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(a.device.NetworkUp()).To(BeTrue())
			Expect(a.device.Hosts()).To(Equal(fixtures.BaseHosts))

			report := a.cycle()
			Expect(report.Skipped).To(BeTrue())
		})
	})

	Describe("hosts file self-healing", func() {
		It("re-applies the block list after a hand edit", func() {
			a.applyFixture("kid.yaml")

			ctx, cancel := context.WithCancel(context.Background())
			hw := daemon.NewHostsWatcher(a.device.Path(), a.enforcer, 20*time.Millisecond, zap.NewNop())
			done := make(chan error, 1)
			go func() { done <- hw.Run(ctx) }()
			DeferCleanup(func() {
				cancel()
				Eventually(done).Should(Receive(BeNil()))
			})
			time.Sleep(50 * time.Millisecond)

			Expect(os.WriteFile(a.device.Path(), []byte(fixtures.BaseHosts), 0o644)).To(Succeed())

			Eventually(a.device.Hosts, 2*time.Second, 20*time.Millisecond).
				Should(ContainSubstring("127.0.0.1 tiktok.com # ParentGuard"))
		})
	})

	Describe("the control API", func() {
		var (
			store  *infra.EncryptedStore
			server *httptest.Server
		)

		BeforeEach(func() {
			var err error
			store, err = infra.OpenEncryptedStore(a.dir, infra.NewFileKeyProvider(a.dir))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(store.Close)

			srv := api.NewServer(api.ServerConfig{Version: "test"}, a.service, a.presets, store, nil, zap.NewNop())
			server = httptest.NewServer(srv.Handler())
			DeferCleanup(server.Close)
		})

		It("blocks a site and keeps it blocked across cycles", func() {
			c := api.NewClient(server.URL, "")
			msg, err := c.BlockSite(context.Background(), "https://www.Example.com/")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("example.com blocked"))

			a.cycle()
			Expect(a.device.Hosts()).To(ContainSubstring("127.0.0.1 www.example.com # ParentGuard"))

			st, err := c.Status(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(st.State.Rules.BlockedSites).To(ContainElement("example.com"))
		})

		It("requires the admin PIN once one is set", func() {
			Expect(api.NewPINGuard(store).Set("2468")).To(Succeed())

			_, err := api.NewClient(server.URL, "").CutInternet(context.Background())
			var apiErr *api.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(a.device.NetworkUp()).To(BeTrue())

			_, err = api.NewClient(server.URL, "2468").CutInternet(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(a.device.NetworkUp()).To(BeFalse())
		})

		It("reports running processes", func() {
			names, err := api.NewClient(server.URL, "").Processes(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Join(names, ",")).To(Equal("firefox,minecraft,steamwebhelper"))
		})
	})

	Describe("daemon registry", func() {
		It("persists across restarts", func() {
			path := filepath.Join(a.dir, "daemon.json")
			Expect(infra.NewFileRegistryWithPath(path).Register(domain.DaemonInfo{PID: os.Getpid(), Addr: "127.0.0.1:7474"})).To(Succeed())

			info, err := infra.NewFileRegistryWithPath(path).Get()
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Addr).To(Equal("127.0.0.1:7474"))

			alive, err := infra.NewFileRegistryWithPath(path).IsAlive()
			Expect(err).NotTo(HaveOccurred())
			Expect(alive).To(BeTrue())
		})
	})
})
