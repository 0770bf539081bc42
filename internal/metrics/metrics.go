package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blnet"

// Command results
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors for the entity layer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	polls       *prometheus.CounterVec
	missingData *prometheus.CounterVec
	commands    *prometheus.CounterVec
	state       *prometheus.GaugeVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "polls_total",
			Help:      "Polls that refreshed entity state from the cache.",
		}, []string{"kind"}),
		missingData: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "missing_data_total",
			Help:      "Polls that found no cached record for the entity.",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "commands_total",
			Help:      "Commands dispatched to the BL-NET adapter.",
		}, []string{"kind", "command", "result"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "state",
			Help:      "Entity state: 1 on, 0 off, -1 unknown.",
		}, []string{"unique_id"}),
	}

	m.registry.MustRegister(collectors.NewBuildInfoCollector())
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(m.polls, m.missingData, m.commands, m.state)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordPoll counts a poll that updated an entity of the given kind.
func (m *Metrics) RecordPoll(kind string) {
	m.polls.WithLabelValues(kind).Inc()
}

// RecordMissing counts a poll that found no cached data.
func (m *Metrics) RecordMissing(kind string) {
	m.missingData.WithLabelValues(kind).Inc()
}

// RecordCommand counts a dispatched command.
func (m *Metrics) RecordCommand(kind, command string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.commands.WithLabelValues(kind, command, result).Inc()
}

// SetState records the state of an entity.
func (m *Metrics) SetState(uniqueID string, value float64) {
	m.state.WithLabelValues(uniqueID).Set(value)
}
