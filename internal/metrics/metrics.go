// Package metrics exposes Prometheus instrumentation for the enforcement loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parentguard"

// Metrics holds the enforcement collectors. A nil *Metrics is a no-op,
// so components can be built without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	processesKilled prometheus.Counter
	networkToggles  *prometheus.CounterVec
	actionFailures  *prometheus.CounterVec
	blockListWrites prometheus.Counter
	minutesUsed     prometheus.Gauge
	internetCut     prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcer",
			Name:      "cycles_total",
			Help:      "Enforcement cycles run, by outcome (enforced/skipped).",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enforcer",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of enforcement cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 7),
		}),
		processesKilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcer",
			Name:      "processes_killed_total",
			Help:      "Blocked applications terminated.",
		}),
		networkToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "toggles_total",
			Help:      "Network cut/restore actions, by action and reason.",
		}, []string{"action", "reason"}),
		actionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcer",
			Name:      "action_failures_total",
			Help:      "Failed OS-facing actions, by action.",
		}, []string{"action"}),
		blockListWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blocklist",
			Name:      "writes_total",
			Help:      "Rewrites of the managed hosts section.",
		}),
		minutesUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "minutes_used",
			Help:      "Budget minutes used by the active profile.",
		}),
		internetCut: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "internet_cut",
			Help:      "1 while the network is cut.",
		}),
	}
	reg.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.processesKilled,
		m.networkToggles,
		m.actionFailures,
		m.blockListWrites,
		m.minutesUsed,
		m.internetCut,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CycleDone records one cycle.
func (m *Metrics) CycleDone(skipped bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "enforced"
	if skipped {
		outcome = "skipped"
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(seconds)
}

func (m *Metrics) ProcessKilled() {
	if m == nil {
		return
	}
	m.processesKilled.Inc()
}

// NetworkToggled records a cut or restore and updates the internet_cut gauge.
func (m *Metrics) NetworkToggled(cut bool, reason string) {
	if m == nil {
		return
	}
	action := "restore"
	if cut {
		action = "cut"
	}
	m.networkToggles.WithLabelValues(action, reason).Inc()
	m.SetInternetCut(cut)
}

func (m *Metrics) ActionFailed(action string) {
	if m == nil {
		return
	}
	m.actionFailures.WithLabelValues(action).Inc()
}

func (m *Metrics) BlockListWritten() {
	if m == nil {
		return
	}
	m.blockListWrites.Inc()
}

func (m *Metrics) SetMinutesUsed(v uint32) {
	if m == nil {
		return
	}
	m.minutesUsed.Set(float64(v))
}

func (m *Metrics) SetInternetCut(cut bool) {
	if m == nil {
		return
	}
	if cut {
		m.internetCut.Set(1)
	} else {
		m.internetCut.Set(0)
	}
}
