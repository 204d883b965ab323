// Package metrics wires Prometheus observability into each of the three
// processes, following the isolated-registry pattern the ambient stack uses
// elsewhere: every process gets its own prometheus.Registry rather than
// sharing the global default one, so tests can spin up multiple instances
// without collector name collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Directory holds the Directory process's collectors.
type Directory struct {
	Registry          *prometheus.Registry
	RegistrationsTotal prometheus.Counter
	KnownPeers         prometheus.Gauge
}

// NewDirectory creates and registers the Directory's collectors.
func NewDirectory() *Directory {
	reg := prometheus.NewRegistry()
	m := &Directory{
		Registry: reg,
		RegistrationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiconsensus_directory_registrations_total",
			Help: "Total number of peers registered with the directory.",
		}),
		KnownPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiconsensus_directory_known_peers",
			Help: "Number of peers currently known to the directory.",
		}),
	}
	reg.MustRegister(m.RegistrationsTotal, m.KnownPeers)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Directory) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// FailureDetector holds the perfect failure detector's collectors.
type FailureDetector struct {
	Registry        *prometheus.Registry
	ProbesTotal     *prometheus.CounterVec // label "result": "success"|"failure"
	CrashesDeclared prometheus.Counter
	KnownPeers      prometheus.Gauge
}

// NewFailureDetector creates and registers the detector's collectors.
func NewFailureDetector() *FailureDetector {
	reg := prometheus.NewRegistry()
	m := &FailureDetector{
		Registry: reg,
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiconsensus_pfd_probes_total",
			Help: "Total number of per-peer probe cycles, by result.",
		}, []string{"result"}),
		CrashesDeclared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiconsensus_pfd_crashes_declared_total",
			Help: "Total number of InformCrash broadcasts emitted.",
		}),
		KnownPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiconsensus_pfd_known_peers",
			Help: "Number of peers currently tracked by the probe loop.",
		}),
	}
	reg.MustRegister(m.ProbesTotal, m.CrashesDeclared, m.KnownPeers)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *FailureDetector) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Agent holds a ConsensusAgent's collectors.
type Agent struct {
	Registry     *prometheus.Registry
	CurrentRound prometheus.Gauge
	Decided      prometheus.Gauge // 0 or 1
	CrashedPeers prometheus.Gauge
	EventsTotal  *prometheus.CounterVec // label "kind"
}

// NewAgent creates and registers a ConsensusAgent's collectors.
func NewAgent() *Agent {
	reg := prometheus.NewRegistry()
	m := &Agent{
		Registry: reg,
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiconsensus_agent_current_round",
			Help: "The agent's current round number.",
		}),
		Decided: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiconsensus_agent_decided",
			Help: "1 if the agent has decided in the current run, 0 otherwise.",
		}),
		CrashedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiconsensus_agent_crashed_peers",
			Help: "Number of peers the agent currently believes crashed.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiconsensus_agent_events_total",
			Help: "Total number of messages handled, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.CurrentRound, m.Decided, m.CrashedPeers, m.EventsTotal)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Agent) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
