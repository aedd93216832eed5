// Package metrics exposes Prometheus collectors for the Telegram runtime and
// the HTTP listener that serves them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	tgsender "github.com/m3rciful/teambot/core/telegram/sender"
)

const namespace = "teambot"

// TelegramCollector counts updates, handler outcomes and outbound sends. It
// satisfies middleware.Recorder.
type TelegramCollector struct {
	updates     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	handled     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sends       *prometheus.CounterVec
}

// NewTelegramCollector returns a new TelegramCollector.
func NewTelegramCollector() *TelegramCollector {
	return &TelegramCollector{
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telegram",
				Name:      "updates_total",
				Help:      "Updates received, by kind.",
			}, []string{"kind"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telegram",
				Name:      "rate_limited_total",
				Help:      "Updates dropped by the rate limiter, by kind.",
			}, []string{"kind"},
		),
		handled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telegram",
				Name:      "handled_total",
				Help:      "Handler invocations, by handler and status.",
			}, []string{"handler", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "telegram",
				Name:      "handler_duration_seconds",
				Help:      "Time spent inside handlers.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			}, []string{"handler"},
		),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telegram",
				Name:      "sends_total",
				Help:      "Queued outbound actions, by action and result class.",
			}, []string{"action", "result"},
		),
	}
}

// UpdateReceived counts an incoming update.
func (c *TelegramCollector) UpdateReceived(kind string) {
	c.updates.WithLabelValues(kind).Inc()
}

// RateLimited counts a throttled update.
func (c *TelegramCollector) RateLimited(kind string) {
	c.rateLimited.WithLabelValues(kind).Inc()
}

// Handled records one handler run.
func (c *TelegramCollector) Handled(handler, status string, took time.Duration) {
	c.handled.WithLabelValues(handler, status).Inc()
	c.duration.WithLabelValues(handler).Observe(took.Seconds())
}

// SendResult fits sender.Options.OnResult.
func (c *TelegramCollector) SendResult(action string, err error) {
	result := "ok"
	if err != nil {
		result = tgsender.Classify(err)
	}
	c.sends.WithLabelValues(action, result).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *TelegramCollector) Describe(ch chan<- *prometheus.Desc) {
	c.updates.Describe(ch)
	c.rateLimited.Describe(ch)
	c.handled.Describe(ch)
	c.duration.Describe(ch)
	c.sends.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *TelegramCollector) Collect(ch chan<- prometheus.Metric) {
	c.updates.Collect(ch)
	c.rateLimited.Collect(ch)
	c.handled.Collect(ch)
	c.duration.Collect(ch)
	c.sends.Collect(ch)
}
