// Package exporters publishes capture metrics over Prometheus and SSE.
package exporters

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/camalbum/internal/logging"
)

// HTTPHandler serves everything registered through promauto. Gather errors
// are logged and the remaining metrics are still served.
func HTTPHandler() http.Handler {
	errLog := slog.NewLogLogger(logging.GetLogger("metrics").Handler(), slog.LevelError)
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          errLog,
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}),
	)
}
