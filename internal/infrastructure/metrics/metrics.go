// Package metrics exposes the climate service's Prometheus collectors.
//
// A Metrics value owns its own registry (no global state), implements
// discovery.Recorder, and serves the text exposition format via Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "climate"

// Metrics holds the discovery and publishing collectors.
type Metrics struct {
	registry *prometheus.Registry

	sensorsCreated   *prometheus.CounterVec // by kind
	reevaluations    prometheus.Counter
	reevalCreated    prometheus.Counter
	eventsHandled    *prometheus.CounterVec // by device_class
	commandsRejected *prometheus.CounterVec // by command
	statesPublished  *prometheus.CounterVec // by sink
	publishErrors    *prometheus.CounterVec // by sink
}

// New creates a Metrics with a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		sensorsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "sensors_created_total",
			Help:      "Derived sensors created, by kind",
		}, []string{"kind"}),

		reevaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "reevaluations_total",
			Help:      "Window sensor re-evaluation passes run with a complete outdoor reference",
		}),

		reevalCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "reevaluation_sensors_created_total",
			Help:      "Window sensors created by re-evaluation passes",
		}),

		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "state_events_total",
			Help:      "State change events acted on, by device class",
		}, []string{"device_class"}),

		commandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "commands_rejected_total",
			Help:      "Operator commands rejected, by command",
		}, []string{"command"}),

		statesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "states_total",
			Help:      "Derived states exported, by sink",
		}, []string{"sink"}),

		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "errors_total",
			Help:      "Failed state exports, by sink",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.sensorsCreated,
		m.reevaluations,
		m.reevalCreated,
		m.eventsHandled,
		m.commandsRejected,
		m.statesPublished,
		m.publishErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SensorCreated counts one derived sensor of kind.
func (m *Metrics) SensorCreated(kind string) {
	m.sensorsCreated.WithLabelValues(kind).Inc()
}

// Reevaluated counts one re-evaluation pass and the sensors it created.
func (m *Metrics) Reevaluated(created int) {
	m.reevaluations.Inc()
	m.reevalCreated.Add(float64(created))
}

// EventHandled counts one state change acted on.
func (m *Metrics) EventHandled(deviceClass string) {
	m.eventsHandled.WithLabelValues(deviceClass).Inc()
}

// CommandRejected counts one rejected operator command.
func (m *Metrics) CommandRejected(command string) {
	m.commandsRejected.WithLabelValues(command).Inc()
}

// StatePublished counts one export to sink, failed or not.
func (m *Metrics) StatePublished(sink string, err error) {
	if err != nil {
		m.publishErrors.WithLabelValues(sink).Inc()
		return
	}
	m.statesPublished.WithLabelValues(sink).Inc()
}
