// SPDX-License-Identifier:Apache-2.0

package em

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/queue"
)

const (
	namespace = "easymesh"
	subsystem = "engine"
)

var stats = metrics{
	events: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "events_total",
		Help:      "Number of events dequeued by the engine",
	}, []string{
		"radio",
		"kind",
	}),

	dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "messages_dropped_total",
		Help:      "Number of inbound events dropped without reaching a phase",
	}, []string{
		"radio",
		"reason",
	}),

	timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "timeouts_total",
		Help:      "Number of protocol timeouts",
	}, []string{
		"radio",
	}),

	commands: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "commands_total",
		Help:      "Number of commands submitted for orchestration",
	}, []string{
		"radio",
		"command",
	}),

	commits: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "commits_total",
		Help:      "Number of configuration commits into the data model",
	}, []string{
		"radio",
	}),

	faults: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "faults_total",
		Help:      "Number of faults that stopped the engine",
	}, []string{
		"radio",
		"op",
	}),

	state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "state",
		Help:      "Current protocol state of the engine",
	}, []string{
		"radio",
	}),
}

type metrics struct {
	events   *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	commands *prometheus.CounterVec
	commits  *prometheus.CounterVec
	faults   *prometheus.CounterVec
	state    *prometheus.GaugeVec
}

func init() {
	prometheus.MustRegister(stats.events)
	prometheus.MustRegister(stats.dropped)
	prometheus.MustRegister(stats.timeouts)
	prometheus.MustRegister(stats.commands)
	prometheus.MustRegister(stats.commits)
	prometheus.MustRegister(stats.faults)
	prometheus.MustRegister(stats.state)
}

func (m *metrics) Event(radio string, kind queue.Kind) {
	m.events.WithLabelValues(radio, kind.String()).Inc()
}

func (m *metrics) Dropped(radio, reason string) {
	m.dropped.WithLabelValues(radio, reason).Inc()
}

func (m *metrics) Timeout(radio string) {
	m.timeouts.WithLabelValues(radio).Inc()
}

func (m *metrics) Command(radio string, t command.Type) {
	m.commands.WithLabelValues(radio, t.String()).Inc()
}

func (m *metrics) Commit(radio string) {
	m.commits.WithLabelValues(radio).Inc()
}

func (m *metrics) Fault(radio, op string) {
	m.faults.WithLabelValues(radio, op).Inc()
}

func (m *metrics) State(radio string, s State) {
	m.state.WithLabelValues(radio).Set(float64(s))
}
