// Package metrics exposes acquisition counters through a private Prometheus
// registry. Counters are plain atomics updated on the hot path and sampled
// lazily by GaugeFunc collectors when the registry is scraped.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the sensor's operational counters.
type Metrics struct {
	FramesCaptured atomic.Uint64
	CaptureErrors  atomic.Uint64
	PublishErrors  atomic.Uint64
	SnapshotReads  atomic.Uint64

	CycleLatencyMs atomic.Uint64 // latest pull-to-publish duration

	running         atomic.Uint64 // 0 = stopped, 1 = running
	lastFrameUnixMs atomic.Int64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_frames_captured_total",
			Help: "Total frames pulled from the camera device",
		},
		func() float64 { return float64(m.FramesCaptured.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_capture_errors_total",
			Help: "Total failed device pulls",
		},
		func() float64 { return float64(m.CaptureErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_publish_errors_total",
			Help: "Total failed shared buffer writes",
		},
		func() float64 { return float64(m.PublishErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_snapshot_reads_total",
			Help: "Total in-process frame snapshots handed out",
		},
		func() float64 { return float64(m.SnapshotReads.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_cycle_latency_ms",
			Help: "Latest acquisition cycle duration in milliseconds",
		},
		func() float64 { return float64(m.CycleLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_running",
			Help: "Acquisition worker state (0=stopped, 1=running)",
		},
		func() float64 { return float64(m.running.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sensor_last_frame_age_seconds",
			Help: "Seconds since the last successful capture cycle",
		},
		func() float64 {
			last := m.lastFrameUnixMs.Load()
			if last == 0 {
				return 0
			}
			return time.Since(time.UnixMilli(last)).Seconds()
		},
	))
}

// ObserveCycle records a completed acquisition cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	m.FramesCaptured.Add(1)
	m.CycleLatencyMs.Store(uint64(d.Milliseconds()))
	m.lastFrameUnixMs.Store(time.Now().UnixMilli())
}

// SetRunning records the acquisition worker state.
func (m *Metrics) SetRunning(on bool) {
	if on {
		m.running.Store(1)
	} else {
		m.running.Store(0)
	}
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
