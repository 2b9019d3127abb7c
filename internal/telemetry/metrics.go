package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesRouted counts frames successfully dispatched by a facade.
	FramesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsim",
			Name:      "frames_routed_total",
			Help:      "Total number of frames routed between chips by a facade",
		},
		[]string{"radio"},
	)

	// FramesDropped counts frames dropped by range gating, an Off radio, or backpressure.
	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsim",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped before delivery",
		},
		[]string{"radio", "reason"},
	)

	// StreamsActive tracks the number of currently attached transport streams.
	StreamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "netsim",
			Name:      "streams_active",
			Help:      "Number of currently attached transport streams",
		},
		[]string{"transport"},
	)

	// CaptureBytesWritten counts bytes appended to pcap files.
	CaptureBytesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsim",
			Name:      "capture_bytes_written_total",
			Help:      "Total bytes written to pcap capture files",
		},
		[]string{"chip_kind"},
	)

	// CaptureErrors counts pcap write failures that disabled a chip's capture.
	CaptureErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsim",
			Name:      "capture_errors_total",
			Help:      "Total number of pcap write errors",
		},
		[]string{"chip_kind"},
	)

	// SceneVersion exposes the current scene version (last_modified, in Unix nanoseconds).
	SceneVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netsim",
			Name:      "scene_version",
			Help:      "Current scene version (last_modified timestamp, Unix nanoseconds)",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the default Prometheus registry.
// Idempotent: safe to call more than once (e.g. in tests that build
// multiple sessions in the same process).
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(FramesRouted)
		prometheus.DefaultRegisterer.Register(FramesDropped)
		prometheus.DefaultRegisterer.Register(StreamsActive)
		prometheus.DefaultRegisterer.Register(CaptureBytesWritten)
		prometheus.DefaultRegisterer.Register(CaptureErrors)
		prometheus.DefaultRegisterer.Register(SceneVersion)
	})
}
