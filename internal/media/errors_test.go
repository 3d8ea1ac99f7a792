package media

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("acquire: %w", NewError(CodePermissionDenied, "denied by policy", errors.New("EACCES")))

	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("expected errors.Is to match permission_denied")
	}
	if errors.Is(err, ErrDeviceUnavailable) {
		t.Error("permission error should not match device_unavailable")
	}
	if got := ErrorCode(err); got != CodePermissionDenied {
		t.Errorf("ErrorCode() = %q, want %q", got, CodePermissionDenied)
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewError(CodeRecorderFailure, "ffmpeg died", nil), "recorder_failure: ffmpeg died"},
		{NewError(CodeDeviceUnavailable, "open", errors.New("busy")), "device_unavailable: open: busy"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	codes := []string{CodePermissionDenied, CodeDeviceUnavailable, CodeUnsupportedConstraint, CodeRecorderFailure}
	seen := make(map[string]bool)
	for _, code := range codes {
		msg := UserMessage(NewError(code, "x", nil))
		if msg == "" {
			t.Errorf("empty message for %s", code)
		}
		if seen[msg] {
			t.Errorf("duplicate message for %s: %q", code, msg)
		}
		seen[msg] = true
	}

	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q, want empty", got)
	}
	if got := UserMessage(errors.New("boom")); got == "" {
		t.Error("expected a generic message for uncoded errors")
	}
}

func TestVideoDevices(t *testing.T) {
	devs := []DeviceInfo{
		{ID: "v0", Kind: KindVideoInput},
		{ID: "a0", Kind: KindAudioInput},
		{ID: "v1", Kind: KindVideoInput},
	}
	got := VideoDevices(devs)
	if len(got) != 2 || got[0].ID != "v0" || got[1].ID != "v1" {
		t.Errorf("VideoDevices() = %+v", got)
	}
}
