// Package metrics counts application lifecycle events for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/teambot/internal/application"
)

const namespace = "teambot"

// Collector implements application.Observer and prometheus.Collector.
type Collector struct {
	resolved    *prometheus.CounterVec
	advanced    *prometheus.CounterVec
	refused     *prometheus.CounterVec
	adjudicated *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		resolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "applications",
				Name:      "resolved_total",
				Help:      "Draft resolutions, by outcome.",
			}, []string{"outcome"},
		),
		advanced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "applications",
				Name:      "advanced_total",
				Help:      "Accepted answers, by the step they completed.",
			}, []string{"step"},
		),
		refused: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "applications",
				Name:      "refused_total",
				Help:      "Rejected answers, by step and reason.",
			}, []string{"step", "reason"},
		),
		adjudicated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "applications",
				Name:      "adjudicated_total",
				Help:      "Review button presses, by decision and result.",
			}, []string{"decision", "result"},
		),
	}
}

var _ application.Observer = (*Collector)(nil)

// Resolved is part of the application.Observer interface.
func (c *Collector) Resolved(outcome application.Outcome) {
	c.resolved.WithLabelValues(string(outcome)).Inc()
}

// Advanced is part of the application.Observer interface.
func (c *Collector) Advanced(from application.Step) {
	c.advanced.WithLabelValues(string(from)).Inc()
}

// Refused is part of the application.Observer interface.
func (c *Collector) Refused(step application.Step, reason application.Reason) {
	c.refused.WithLabelValues(string(step), string(reason)).Inc()
}

// Adjudicated is part of the application.Observer interface.
func (c *Collector) Adjudicated(decision application.Decision, result string) {
	c.adjudicated.WithLabelValues(string(decision), result).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.resolved.Describe(ch)
	c.advanced.Describe(ch)
	c.refused.Describe(ch)
	c.adjudicated.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.resolved.Collect(ch)
	c.advanced.Collect(ch)
	c.refused.Collect(ch)
	c.adjudicated.Collect(ch)
}
