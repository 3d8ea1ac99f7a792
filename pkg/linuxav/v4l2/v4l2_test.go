//go:build linux

package v4l2

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		name     string
		format   uint32
		expected string
	}{
		{"YUYV format", PixFmtYUYV, "YUYV"},
		{"MJPEG format", PixFmtMJPEG, "MJPG"},
		{"H264 format", PixFmtH264, "H264"},
		{"NV12 format", PixFmtNV12, "NV12"},
		{"null bytes", 0, "\x00\x00\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFourCC(tt.format); got != tt.expected {
				t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, got, tt.expected)
			}
		})
	}
}

func TestShortName(t *testing.T) {
	if got := ShortName(PixFmtMJPEG); got != "mjpeg" {
		t.Errorf("ShortName(MJPG) = %q", got)
	}
	if got := ShortName(0x56595559); got != "yuyv422" {
		t.Errorf("ShortName(YUYV) = %q", got)
	}
	if got := ShortName(0x30323449); got != "I420" {
		t.Errorf("ShortName(unknown) = %q, want fourcc", got)
	}
}

func TestFramerateFPS(t *testing.T) {
	tests := []struct {
		name string
		fr   Framerate
		want float64
	}{
		{"30 fps", Framerate{1, 30}, 30},
		{"NTSC", Framerate{1001, 30000}, 29.97},
		{"zero numerator", Framerate{0, 30}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fr.FPS(); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("FPS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommonResolutionsWithin(t *testing.T) {
	got := commonResolutionsWithin(640, 1280, 480, 720)
	want := []Resolution{{640, 480}, {800, 600}, {1280, 720}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCapabilityNames(t *testing.T) {
	names := CapabilityNames(capVideoCapture | capStreaming)
	if len(names) != 2 || names[0] != "Video Capture" || names[1] != "Streaming I/O" {
		t.Errorf("CapabilityNames() = %v", names)
	}
	if names := CapabilityNames(0); len(names) != 0 {
		t.Errorf("CapabilityNames(0) = %v", names)
	}
}

func TestEffectiveCaps(t *testing.T) {
	c := capability{capabilities: capDeviceCaps | capVideoCapture | 0x10, deviceCaps: capVideoCapture}
	if got := c.effectiveCaps(); got != capVideoCapture {
		t.Errorf("effectiveCaps() = 0x%x, want device caps", got)
	}
	c = capability{capabilities: capVideoCapture | capStreaming}
	if got := c.effectiveCaps(); got != capVideoCapture|capStreaming {
		t.Errorf("effectiveCaps() = 0x%x", got)
	}
}

func TestStableID(t *testing.T) {
	dir := t.TempDir()
	old := byIDDir
	byIDDir = dir
	t.Cleanup(func() { byIDDir = old })

	link := "usb-Logitech_C920_ABC-video-index0"
	if err := os.Symlink("../../video2", filepath.Join(dir, link)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		node    string
		index   int
		busInfo string
		want    string
	}{
		{"by-id symlink", "video2", 0, "usb-0000:00:14.0-1", link},
		{"usb fallback", "video4", 0, "usb-0000:00:14.0-2", "usb-0000:00:14.0-2-video-index0"},
		{"platform fallback", "video0", 1, "platform:rkisp", "platform-platform:rkisp-video-index1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stableID(tt.node, tt.index, tt.busInfo); got != tt.want {
				t.Errorf("stableID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindDevicesMissingSysfs(t *testing.T) {
	old := sysClassDir
	sysClassDir = filepath.Join(t.TempDir(), "absent")
	t.Cleanup(func() { sysClassDir = old })

	devices, err := FindDevices()
	if err != nil {
		t.Fatalf("FindDevices() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("devices = %v, want none", devices)
	}
}

func TestCstr(t *testing.T) {
	if got := cstr([]byte{'u', 'v', 'c', 0, 'x'}); got != "uvc" {
		t.Errorf("cstr() = %q", got)
	}
	if got := cstr([]byte("full")); got != "full" {
		t.Errorf("cstr() = %q", got)
	}
}
