// Package metrics exports launcher activity as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Prom holds the launcher collectors. Each instance owns its collectors so
// several engines (tests, headless queries) never collide on registration.
type Prom struct {
	buildInfo      *prometheus.GaugeVec
	pluginCalls    *prometheus.CounterVec
	pluginDuration *prometheus.HistogramVec
	staleDiscards  *prometheus.CounterVec
	actions        *prometheus.CounterVec
	generation     prometheus.Gauge
}

// New builds the collectors without registering them.
func New() *Prom {
	return &Prom{
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sift_build_info",
				Help: "Build information for the sift launcher",
			},
			[]string{"date", "sha", "version"},
		),
		pluginCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_plugin_calls_total",
				Help: "Plugin entry point calls by plugin, phase and outcome",
			},
			[]string{"plugin", "phase", "outcome"},
		),
		pluginDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sift_plugin_call_duration_seconds",
				Help:    "Duration of plugin entry point calls",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"plugin", "phase"},
		),
		staleDiscards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_stale_results_discarded_total",
				Help: "Resolved query or activation results dropped because a newer user action superseded them",
			},
			[]string{"plugin"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_actions_executed_total",
				Help: "Plugin actions executed by the host",
			},
			[]string{"kind"},
		),
		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sift_generation",
				Help: "Current user action generation",
			},
		),
	}
}

// Register registers every collector with r.
func (p *Prom) Register(r prometheus.Registerer) {
	r.MustRegister(p.buildInfo, p.pluginCalls, p.pluginDuration, p.staleDiscards, p.actions, p.generation)
}

// SetBuildInfo sets the build info metric.
func (p *Prom) SetBuildInfo(version, sha, date string) {
	p.buildInfo.WithLabelValues(date, sha, version).Set(1)
}

func (p *Prom) ObservePluginCall(plugin, phase string, d time.Duration, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	p.pluginCalls.WithLabelValues(plugin, phase, outcome).Inc()
	p.pluginDuration.WithLabelValues(plugin, phase).Observe(d.Seconds())
}

func (p *Prom) StaleDiscarded(plugin string) {
	p.staleDiscards.WithLabelValues(plugin).Inc()
}

func (p *Prom) ActionExecuted(kind string) {
	p.actions.WithLabelValues(kind).Inc()
}

func (p *Prom) SetGeneration(g domain.Generation) {
	p.generation.Set(float64(g))
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObservePluginCall(string, string, time.Duration, bool) {}
func (Nop) StaleDiscarded(string) {}
func (Nop) ActionExecuted(string) {}
func (Nop) SetGeneration(domain.Generation) {}

var (
	_ ports.Metrics = (*Prom)(nil)
	_ ports.Metrics = Nop{}
)
