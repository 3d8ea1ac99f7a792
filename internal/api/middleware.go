package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/smazurov/camalbum/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLevel picks the log level for a finished request. Preflights and
// health probes are noise at info.
func requestLevel(method, path string, status int) slog.Level {
	switch {
	case method == http.MethodOptions, path == "/api/health":
		return slog.LevelDebug
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// requestID reuses a client supplied id so proxies and the album service can
// correlate log lines.
func requestID(header string) string {
	if header != "" && len(header) <= 128 {
		return header
	}
	return uuid.NewString()
}

// HTTPLoggingMiddleware tags each request with an id and logs it once done.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	id := requestID(ctx.Header(requestIDHeader))
	ctx.SetHeader(requestIDHeader, id)

	u := ctx.URL()
	attrs := []slog.Attr{
		slog.String("request_id", id),
		slog.String("method", ctx.Method()),
		slog.String("path", u.Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if u.RawQuery != "" {
		attrs = append(attrs, slog.String("query", redactAuth(u.Query())))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)
	logger.LogAttrs(ctx.Context(), requestLevel(ctx.Method(), u.Path, status), "HTTP request completed", attrs...)
}

// redactAuth hides the credentials EventSource and websocket clients pass in
// the query string.
func redactAuth(q url.Values) string {
	if q.Has("auth") {
		q.Set("auth", "REDACTED")
	}
	return q.Encode()
}
