package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

// Metrics holds the Prometheus collectors for telemetry parsing and the
// configuration endpoints.
type Metrics struct {
	registry *prometheus.Registry

	parses         *prometheus.CounterVec // by scheme
	skippedLines   *prometheus.CounterVec // by reason
	devices        prometheus.Gauge
	activeDevices  prometheus.Gauge
	sceneLinks     prometheus.Gauge
	configRequests *prometheus.CounterVec // by op and status
	subscribers    prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		parses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurosphere_telemetry_parses_total",
				Help: "Telemetry files parsed",
			},
			[]string{"scheme"},
		),
		skippedLines: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurosphere_telemetry_skipped_lines_total",
				Help: "Telemetry data lines dropped during parsing",
			},
			[]string{"reason"},
		),
		devices: f.NewGauge(prometheus.GaugeOpts{
			Name: "neurosphere_telemetry_devices",
			Help: "Devices in the most recent telemetry snapshot",
		}),
		activeDevices: f.NewGauge(prometheus.GaugeOpts{
			Name: "neurosphere_telemetry_active_devices",
			Help: "Active devices in the most recent telemetry snapshot",
		}),
		sceneLinks: f.NewGauge(prometheus.GaugeOpts{
			Name: "neurosphere_scene_connections",
			Help: "Connection lines in the current scene",
		}),
		configRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurosphere_config_requests_total",
				Help: "Configuration load/save requests by outcome",
			},
			[]string{"op", "status"},
		),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "neurosphere_feed_subscribers",
			Help: "Connected live activity subscribers",
		}),
	}
}

// ObserveSnapshot records a completed parse.
func (m *Metrics) ObserveSnapshot(snap *telemetry.Snapshot) {
	if m == nil || snap == nil {
		return
	}
	m.parses.WithLabelValues(string(snap.Scheme)).Inc()
	for _, s := range snap.Report.Skipped {
		m.skippedLines.WithLabelValues(string(s.Reason)).Inc()
	}
	m.devices.Set(float64(len(snap.Devices)))
	m.activeDevices.Set(float64(snap.ActiveDevices()))
}

// SetSceneConnections records the connection count of the current scene.
func (m *Metrics) SetSceneConnections(n int) {
	if m == nil {
		return
	}
	m.sceneLinks.Set(float64(n))
}

// ObserveConfig counts a configuration request outcome.
func (m *Metrics) ObserveConfig(op string, status int) {
	if m == nil {
		return
	}
	m.configRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

// SetSubscribers records the number of live subscribers.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
