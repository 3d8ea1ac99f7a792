// Package metrics provides Prometheus metrics for capture, devices and album uploads.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camalbum",
		Subsystem: "capture",
		Name:      "state",
		Help:      "1 for the controller's current state, 0 otherwise",
	}, []string{"state"})

	capturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camalbum",
		Subsystem: "capture",
		Name:      "results_total",
		Help:      "Capture results emitted, by kind",
	}, []string{"kind"})

	captureBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "camalbum",
		Subsystem: "capture",
		Name:      "result_bytes",
		Help:      "Size of emitted capture results",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 8),
	}, []string{"kind"})

	acquireDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camalbum",
		Subsystem: "capture",
		Name:      "acquire_duration_seconds",
		Help:      "Time taken to open a camera stream",
		Buckets:   prometheus.DefBuckets,
	})

	captureErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camalbum",
		Subsystem: "capture",
		Name:      "errors_total",
		Help:      "Capture failures, by error code",
	}, []string{"code"})

	recordingChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camalbum",
		Subsystem: "capture",
		Name:      "recording_chunks",
		Help:      "Chunks buffered by the active recording session",
	})

	// Local cache for SSE exporter access.
	snapshot   CaptureSnapshot
	snapshotMu sync.RWMutex
)

var knownStates = []string{"idle", "ready", "recording", "error"}

// CaptureSnapshot holds current metric values.
type CaptureSnapshot struct {
	State           string
	Photos          int
	Videos          int
	Bytes           int64
	RecordingChunks int
	UploadsOK       int
	UploadsFailed   int
}

// SetCaptureState marks state as the current controller state.
func SetCaptureState(state string) {
	for _, s := range knownStates {
		v := 0.0
		if s == state {
			v = 1
		}
		captureState.WithLabelValues(s).Set(v)
	}
	update(func(m *CaptureSnapshot) { m.State = state })
}

// ObserveCapture records an emitted photo or video.
func ObserveCapture(kind string, size int) {
	capturesTotal.WithLabelValues(kind).Inc()
	captureBytes.WithLabelValues(kind).Observe(float64(size))
	update(func(m *CaptureSnapshot) {
		if kind == "photo" {
			m.Photos++
		} else {
			m.Videos++
		}
		m.Bytes += int64(size)
	})
}

// ObserveAcquire records how long opening a stream took.
func ObserveAcquire(d time.Duration) {
	acquireDuration.Observe(d.Seconds())
}

// IncCaptureError counts a failure by code.
func IncCaptureError(code string) {
	if code == "" {
		code = "unknown"
	}
	captureErrors.WithLabelValues(code).Inc()
}

// SetRecordingChunks sets the chunk count of the active session.
func SetRecordingChunks(n int) {
	recordingChunks.Set(float64(n))
	update(func(m *CaptureSnapshot) { m.RecordingChunks = n })
}

// GetCaptureSnapshot returns current metric values.
func GetCaptureSnapshot() CaptureSnapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

func update(fn func(*CaptureSnapshot)) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	fn(&snapshot)
}
