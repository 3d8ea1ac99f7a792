package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSPolicyAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"no list allows all", nil, "http://a.example", true},
		{"wildcard", []string{"*"}, "http://a.example", true},
		{"listed", []string{"http://a.example/"}, "http://a.example", true},
		{"unlisted", []string{"http://a.example"}, "http://b.example", false},
		{"same origin request", []string{"http://a.example"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newCORSPolicy(tt.origins).allowed(tt.origin); got != tt.want {
				t.Errorf("allowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORSPreflightEchoesListedOrigin(t *testing.T) {
	p := newCORSPolicy([]string{"http://album.local"})

	req := httptest.NewRequest(http.MethodOptions, "/api/capture/photo", nil)
	req.Header.Set("Origin", "http://album.local")
	rec := httptest.NewRecorder()
	p.preflight(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://album.local" {
		t.Errorf("allow origin = %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Error("missing Vary: Origin")
	}
}

func TestCORSPreflightRejectsUnlistedOrigin(t *testing.T) {
	p := newCORSPolicy([]string{"http://album.local"})

	req := httptest.NewRequest(http.MethodOptions, "/api/capture/photo", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	p.preflight(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected allow origin header")
	}
}

func TestCORSCheckOrigin(t *testing.T) {
	p := newCORSPolicy([]string{"http://album.local"})

	req := httptest.NewRequest(http.MethodGet, "/api/preview/ws", nil)
	req.Header.Set("Origin", "http://album.local/")
	if !p.checkOrigin(req) {
		t.Error("listed origin rejected")
	}
	req.Header.Set("Origin", "http://evil.example")
	if p.checkOrigin(req) {
		t.Error("unlisted origin accepted")
	}
}
