package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camalbum",
		Subsystem: "album",
		Name:      "uploads_total",
		Help:      "Media uploads to the album backend, by result",
	}, []string{"result"})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camalbum",
		Subsystem: "album",
		Name:      "upload_duration_seconds",
		Help:      "Time taken to upload one capture",
		Buckets:   prometheus.DefBuckets,
	})

	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camalbum",
		Subsystem: "album",
		Name:      "api_requests_total",
		Help:      "Requests made to the album backend, by method and status",
	}, []string{"method", "status"})

	devicesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camalbum",
		Subsystem: "devices",
		Name:      "video_inputs",
		Help:      "Number of video input devices currently known",
	})
)

// ObserveUpload records the outcome of one upload.
func ObserveUpload(ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	uploadsTotal.WithLabelValues(result).Inc()
	uploadDuration.Observe(d.Seconds())
	update(func(m *CaptureSnapshot) {
		if ok {
			m.UploadsOK++
		} else {
			m.UploadsFailed++
		}
	})
}

// IncAPIRequest counts a request to the album backend. status is the HTTP
// status code text, or "error" when no response arrived.
func IncAPIRequest(method, status string) {
	apiRequests.WithLabelValues(method, status).Inc()
}

// SetDeviceCount sets the number of known video inputs.
func SetDeviceCount(n int) {
	devicesGauge.Set(float64(n))
}
