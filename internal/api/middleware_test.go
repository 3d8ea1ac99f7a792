package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		method string
		path   string
		status int
		want   slog.Level
	}{
		{http.MethodOptions, "/api/capture/photo", 204, slog.LevelDebug},
		{http.MethodGet, "/api/health", 200, slog.LevelDebug},
		{http.MethodPost, "/api/capture/photo", 200, slog.LevelInfo},
		{http.MethodPost, "/api/capture/photo", 409, slog.LevelWarn},
		{http.MethodPost, "/api/capture/photo", 503, slog.LevelError},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.method, tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s %s %d) = %v, want %v", tt.method, tt.path, tt.status, got, tt.want)
		}
	}
}

func TestRequestID(t *testing.T) {
	if got := requestID("abc-123"); got != "abc-123" {
		t.Errorf("requestID kept = %q", got)
	}
	if got := requestID(""); len(got) != 36 {
		t.Errorf("generated id = %q, want uuid", got)
	}
	if got := requestID(strings.Repeat("x", 200)); len(got) != 36 {
		t.Errorf("oversized id not replaced: %d chars", len(got))
	}
}

func TestRedactAuth(t *testing.T) {
	q := url.Values{"auth": {"dXNlcjpwYXNz"}, "fps": {"5"}}
	got := redactAuth(q)
	if strings.Contains(got, "dXNlcjpwYXNz") {
		t.Errorf("credentials leaked: %s", got)
	}
	if !strings.Contains(got, "fps=5") {
		t.Errorf("other params dropped: %s", got)
	}
}
