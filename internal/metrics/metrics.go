// Package metrics exposes Prometheus counters/gauges for the compression
// engine and the telemetry gateway, plus a local atomic mirror for
// logging-only deployments that don't scrape Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uviespace/airspace-compress/internal/logging"
)

var (
	FramesCompressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_frames_compressed_total",
		Help: "Total frames produced by the compression engine.",
	})
	SampleBytesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_sample_bytes_in_total",
		Help: "Total original sample bytes consumed by the compression engine.",
	})
	FrameBytesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_frame_bytes_out_total",
		Help: "Total compressed frame bytes produced by the compression engine.",
	})
	FallbackFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_fallback_frames_total",
		Help: "Total frames that hit the uncompressed fallback path.",
	})
	SessionRollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_session_rollovers_total",
		Help: "Total implicit session resets triggered by secondary_iterations rollover.",
	})
	CompressionRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airspace_compression_ratio",
		Help: "Most recent frame's compressed_size / original_size ratio.",
	})
	TCPRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_tcp_rx_frames_total",
		Help: "Total sample buffers received from the instrument source.",
	})
	TCPTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_tcp_tx_frames_total",
		Help: "Total compressed frames sent to downlink clients.",
	})
	HubDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_hub_dropped_frames_total",
		Help: "Total frames dropped by the gateway hub due to slow clients.",
	})
	HubDroppedFallbackFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_hub_dropped_fallback_frames_total",
		Help: "Total uncompressed-fallback frames dropped by the gateway hub after their delivery grace period.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_hub_kicked_clients_total",
		Help: "Total downlink clients disconnected by the backpressure kick policy.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airspace_hub_rejected_clients_total",
		Help: "Total downlink client connection attempts rejected (e.g. max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airspace_hub_active_clients",
		Help: "Current number of connected downlink clients.",
	})
	HubBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airspace_hub_broadcast_fanout",
		Help: "Number of downlink clients targeted in the most recent broadcast.",
	})
	HubQueueDepthMax = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airspace_hub_queue_depth_max",
		Help: "Observed max queued frames among clients in the last broadcast.",
	})
	HubQueueDepthAvg = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airspace_hub_queue_depth_avg",
		Help: "Approximate average queued frames per client in the last broadcast.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airspace_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airspace_errors_total",
		Help: "Error counters by subsystem and error kind.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrEngineInit     = "engine_init"
	ErrEngineCompress = "engine_compress"
	ErrInstrumentRead = "instrument_read"
	ErrTCPWrite       = "tcp_write"
	ErrHandshake      = "handshake"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to read for periodic log-line summaries
// without touching the Prometheus registry.
var (
	localFramesCompressed uint64
	localSampleBytesIn    uint64
	localFrameBytesOut    uint64
	localFallback         uint64
	localRollovers        uint64
	localTCPRx            uint64
	localTCPTx            uint64
	localHubDrop          uint64
	localHubFallbackDrop  uint64
	localHubKick          uint64
	localHubReject        uint64
	localErrors           uint64
	localHubClients       uint64
	localFanout           uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	FramesCompressed uint64
	SampleBytesIn    uint64
	FrameBytesOut    uint64
	Fallback         uint64
	Rollovers        uint64
	TCPRx            uint64
	TCPTx            uint64
	HubDrops         uint64
	HubFallbackDrops uint64
	HubKicks         uint64
	HubRejects       uint64
	Errors           uint64
	HubClients       uint64
	Fanout           uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesCompressed: atomic.LoadUint64(&localFramesCompressed),
		SampleBytesIn:    atomic.LoadUint64(&localSampleBytesIn),
		FrameBytesOut:    atomic.LoadUint64(&localFrameBytesOut),
		Fallback:         atomic.LoadUint64(&localFallback),
		Rollovers:        atomic.LoadUint64(&localRollovers),
		TCPRx:            atomic.LoadUint64(&localTCPRx),
		TCPTx:            atomic.LoadUint64(&localTCPTx),
		HubDrops:         atomic.LoadUint64(&localHubDrop),
		HubFallbackDrops: atomic.LoadUint64(&localHubFallbackDrop),
		HubKicks:         atomic.LoadUint64(&localHubKick),
		HubRejects:       atomic.LoadUint64(&localHubReject),
		Errors:           atomic.LoadUint64(&localErrors),
		HubClients:       atomic.LoadUint64(&localHubClients),
		Fanout:           atomic.LoadUint64(&localFanout),
	}
}

// ObserveFrame records one compressed frame's sizes and updates the
// compression-ratio gauge.
func ObserveFrame(originalSize, compressedSize uint32, fellBack bool) {
	FramesCompressed.Inc()
	SampleBytesIn.Add(float64(originalSize))
	FrameBytesOut.Add(float64(compressedSize))
	atomic.AddUint64(&localFramesCompressed, 1)
	atomic.AddUint64(&localSampleBytesIn, uint64(originalSize))
	atomic.AddUint64(&localFrameBytesOut, uint64(compressedSize))
	if originalSize > 0 {
		CompressionRatio.Set(float64(compressedSize) / float64(originalSize))
	}
	if fellBack {
		FallbackFrames.Inc()
		atomic.AddUint64(&localFallback, 1)
	}
}

func IncSessionRollover() {
	SessionRollovers.Inc()
	atomic.AddUint64(&localRollovers, 1)
}

func IncTCPRx() {
	TCPRxFrames.Inc()
	atomic.AddUint64(&localTCPRx, 1)
}

func AddTCPTx(n int) {
	TCPTxFrames.Add(float64(n))
	atomic.AddUint64(&localTCPTx, uint64(n))
}

func IncHubDrop() {
	HubDroppedFrames.Inc()
	atomic.AddUint64(&localHubDrop, 1)
}

func IncFallbackDrop() {
	HubDroppedFallbackFrames.Inc()
	atomic.AddUint64(&localHubFallbackDrop, 1)
}

func IncHubKick() {
	HubKickedClients.Inc()
	atomic.AddUint64(&localHubKick, 1)
}

func IncHubReject() {
	HubRejectedClients.Inc()
	atomic.AddUint64(&localHubReject, 1)
}

func SetHubClients(n int) {
	HubActiveClients.Set(float64(n))
	atomic.StoreUint64(&localHubClients, uint64(n))
}

func SetBroadcastFanout(n int) {
	HubBroadcastFanout.Set(float64(n))
	atomic.StoreUint64(&localFanout, uint64(n))
}

// SetQueueDepth records the max and average per-client outbound queue
// depth observed during the most recent broadcast.
func SetQueueDepth(max, avg int) {
	HubQueueDepthMax.Set(float64(max))
	HubQueueDepthAvg.Set(float64(avg))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first real error doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrEngineInit, ErrEngineCompress, ErrInstrumentRead, ErrTCPWrite, ErrHandshake} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
