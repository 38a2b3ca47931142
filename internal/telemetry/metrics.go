// Package telemetry exposes Prometheus metrics for playout builds.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hermes"

// Build results recorded on hermes_playout_builds_total
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultStalled = "stalled"
	ResultConfig  = "config_error"
)

// Metrics holds the playout collectors and the registry they are registered on
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal    *prometheus.CounterVec
	buildDuration  *prometheus.HistogramVec
	itemsGenerated *prometheus.CounterVec
	buildWarnings  *prometheus.CounterVec
	timelineAhead  *prometheus.GaugeVec
	historyTrimmed *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry with Go and process collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		buildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playout",
			Name:      "builds_total",
			Help:      "Playout builds by mode and result.",
		}, []string{"mode", "result"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "playout",
			Name:      "build_duration_seconds",
			Help:      "Wall time of playout builds including persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"mode"}),
		itemsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playout",
			Name:      "items_generated_total",
			Help:      "Timeline items produced by successful builds.",
		}, []string{"channel_id"}),
		buildWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playout",
			Name:      "build_warnings_total",
			Help:      "Warnings reported by playout builds.",
		}, []string{"channel_id"}),
		timelineAhead: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "playout",
			Name:      "timeline_ahead_seconds",
			Help:      "How far past now each channel's timeline extends.",
		}, []string{"channel_id"}),
		historyTrimmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playout",
			Name:      "history_trimmed_total",
			Help:      "Timeline items removed by history retention.",
		}, []string{"channel_id"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.buildsTotal,
		m.buildDuration,
		m.itemsGenerated,
		m.buildWarnings,
		m.timelineAhead,
		m.historyTrimmed,
	)
	return m
}

// ObserveBuild records one build attempt
func (m *Metrics) ObserveBuild(channelID, mode, result string, elapsed time.Duration, items, warnings int) {
	if m == nil {
		return
	}
	m.buildsTotal.WithLabelValues(mode, result).Inc()
	m.buildDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if items > 0 {
		m.itemsGenerated.WithLabelValues(channelID).Add(float64(items))
	}
	if warnings > 0 {
		m.buildWarnings.WithLabelValues(channelID).Add(float64(warnings))
	}
}

// SetTimelineAhead records how far a channel is scheduled past now
func (m *Metrics) SetTimelineAhead(channelID string, ahead time.Duration) {
	if m == nil {
		return
	}
	if ahead < 0 {
		ahead = 0
	}
	m.timelineAhead.WithLabelValues(channelID).Set(ahead.Seconds())
}

// AddTrimmed records items removed by history retention
func (m *Metrics) AddTrimmed(channelID string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.historyTrimmed.WithLabelValues(channelID).Add(float64(n))
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
