//go:build linux

package alsa

import "testing"

func TestFormatALSADevice(t *testing.T) {
	tests := []struct {
		card, device int
		want         string
	}{
		{0, 0, "hw:0,0"},
		{1, 0, "hw:1,0"},
		{10, 5, "hw:10,5"},
	}
	for _, tt := range tests {
		if got := FormatALSADevice(tt.card, tt.device); got != tt.want {
			t.Errorf("FormatALSADevice(%d, %d) = %q, want %q", tt.card, tt.device, got, tt.want)
		}
	}
}

func TestParseALSADevice(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		card, dev int
		wantErr   bool
	}{
		{"hw", "hw:1,0", 1, 0, false},
		{"plughw", "plughw:2,3", 2, 3, false},
		{"round trip", FormatALSADevice(12, 7), 12, 7, false},
		{"default", "default", 0, 0, true},
		{"missing device", "hw:1", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, dev, err := ParseALSADevice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseALSADevice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && (card != tt.card || dev != tt.dev) {
				t.Errorf("ParseALSADevice(%q) = %d,%d, want %d,%d", tt.input, card, dev, tt.card, tt.dev)
			}
		})
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		format int
		want   string
	}{
		{FormatS8, "S8"},
		{FormatU8, "U8"},
		{FormatS16LE, "S16_LE"},
		{FormatS24BE, "S24_BE"},
		{FormatFloat64LE, "FLOAT64_LE"},
		{-1, "UNKNOWN"},
		{18, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := FormatName(tt.format); got != tt.want {
			t.Errorf("FormatName(%d) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestHwParamsMask(t *testing.T) {
	var hw hwParams
	hw.reset()
	if !hw.hasMask(hwParamFormat, FormatS16LE) {
		t.Error("reset mask should allow every format")
	}
	hw.setMask(hwParamAccess, accessRWInterleaved)
	if !hw.hasMask(hwParamAccess, accessRWInterleaved) || hw.hasMask(hwParamAccess, 0) {
		t.Error("setMask should leave only the chosen access mode")
	}
	if _, maxRate := hw.interval(hwParamRate); maxRate != 0xFFFFFFFF {
		t.Errorf("reset interval max = %#x", maxRate)
	}
}

func TestListDevicesWithoutSound(t *testing.T) {
	old := devDir
	devDir = t.TempDir()
	t.Cleanup(func() { devDir = old })

	devices, err := ListDevices()
	if err != nil || len(devices) != 0 {
		t.Errorf("ListDevices() = %v, %v, want empty", devices, err)
	}
}
