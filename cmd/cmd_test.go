package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/devices"
	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/media/testsrc"
)

func newTestSource() *testsrc.Source {
	return testsrc.New(testsrc.Options{
		Devices: []media.DeviceInfo{
			{ID: "cam-a", Label: "Front", Kind: media.KindVideoInput},
			{ID: "cam-b", Kind: media.KindVideoInput},
		},
		Width:  64,
		Height: 48,
	})
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"", false},
		{SourceCamera, false},
		{SourceTestsrc, false},
		{"gstreamer", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			src, err := NewSource(tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSource(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			}
			if !tt.wantErr && src == nil {
				t.Fatal("nil source")
			}
		})
	}
}

func TestNewRecorderFactory(t *testing.T) {
	src := newTestSource()
	stream, err := src.Open(context.Background(), "cam-a", media.Constraints{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer stream.Stop()

	tests := []struct {
		kind     string
		wantMime string
		wantErr  bool
	}{
		{"", media.MimeMJPEG, false},
		{RecorderMJPEG, media.MimeMJPEG, false},
		{RecorderWebM, "video/webm", false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			f, err := NewRecorderFactory(tt.kind, 200*time.Millisecond, "ffmpeg", "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			rec, err := f.NewRecorder(stream)
			if err != nil {
				t.Fatalf("NewRecorder() error = %v", err)
			}
			if !strings.HasPrefix(rec.MimeType(), tt.wantMime) {
				t.Errorf("MimeType() = %q, want prefix %q", rec.MimeType(), tt.wantMime)
			}
		})
	}
}

func TestResolveAudioInput(t *testing.T) {
	mics := []AudioInput{
		{Device: "hw:1,0", Name: "USB Audio", Card: "USB Camera"},
		{Device: "hw:2,0", Name: "I2S", Card: "Board"},
	}
	tests := []struct {
		name      string
		inputs    []AudioInput
		listErr   error
		preferred string
		want      string
		wantCode  string
	}{
		{name: "first microphone", inputs: mics, want: "hw:1,0"},
		{name: "preferred", inputs: mics, preferred: "hw:2,0", want: "hw:2,0"},
		{name: "plughw of a listed device", inputs: mics, preferred: "plughw:2,0", want: "plughw:2,0"},
		{name: "unknown preferred", inputs: mics, preferred: "hw:9,0", wantCode: media.CodeDeviceUnavailable},
		{name: "no microphones", wantCode: media.CodeDeviceUnavailable},
		{name: "no ALSA", listErr: errors.New("no /dev/snd"), wantCode: media.CodeUnsupportedConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := listAudioInputs
			listAudioInputs = func() ([]AudioInput, error) { return tt.inputs, tt.listErr }
			t.Cleanup(func() { listAudioInputs = old })

			got, err := ResolveAudioInput(tt.preferred)
			if tt.wantCode != "" {
				if media.ErrorCode(err) != tt.wantCode {
					t.Fatalf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ResolveAudioInput(%q) = %q, %v, want %q", tt.preferred, got, err, tt.want)
			}
		})
	}
}

func TestWebMRecorderWithAudio(t *testing.T) {
	src := newTestSource()
	stream, err := src.Open(context.Background(), "cam-a", media.Constraints{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer stream.Stop()

	f, err := NewRecorderFactory(RecorderWebM, 0, "ffmpeg", "hw:1,0")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := f.NewRecorder(stream)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if got := rec.MimeType(); got != "video/webm;codecs=vp9,opus" {
		t.Errorf("MimeType() = %q", got)
	}
}

func TestListMicrophones(t *testing.T) {
	old := listAudioInputs
	t.Cleanup(func() { listAudioInputs = old })

	listAudioInputs = func() ([]AudioInput, error) {
		return []AudioInput{{Device: "hw:1,0", Name: "USB Audio", Card: "USB Camera"}}, nil
	}
	var buf bytes.Buffer
	if err := listMicrophones(&buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "hw:1,0") || !strings.Contains(buf.String(), "USB Audio") {
		t.Errorf("table output = %q", buf.String())
	}

	buf.Reset()
	if err := listMicrophones(&buf, true); err != nil {
		t.Fatal(err)
	}
	var got []AudioInput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil || len(got) != 1 || got[0].Card != "USB Camera" {
		t.Errorf("json output = %s (%v)", buf.String(), err)
	}

	listAudioInputs = func() ([]AudioInput, error) { return nil, nil }
	buf.Reset()
	if err := listMicrophones(&buf, false); err != nil || !strings.Contains(buf.String(), "No microphones found") {
		t.Errorf("empty output = %q, %v", buf.String(), err)
	}
}

func TestConstraints(t *testing.T) {
	if c := Constraints(1280, 720, true); c.Width != 1280 || c.Height != 720 || !c.Audio {
		t.Errorf("Constraints(1280, 720, true) = %+v", c)
	}
	if c := Constraints(0, 720, false); c.Width != 0 || c.Height != 0 {
		t.Errorf("partial size should be dropped, got %+v", c)
	}
}

type noDetails struct{}

func (noDetails) Describe(media.DeviceInfo) (devices.Details, bool) { return devices.Details{}, false }

func (noDetails) Formats(string) ([]models.FormatInfo, error) { return nil, errors.New("none") }

func TestListDevices(t *testing.T) {
	src := newTestSource()

	var table bytes.Buffer
	if err := listDevices(context.Background(), src, noDetails{}, &table, false, true); err != nil {
		t.Fatalf("listDevices() error = %v", err)
	}
	out := table.String()
	for _, want := range []string{"cam-a", "Front", "cam-b", "Camera 2", "*"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	var js bytes.Buffer
	if err := listDevices(context.Background(), src, noDetails{}, &js, true, false); err != nil {
		t.Fatalf("listDevices(json) error = %v", err)
	}
	var listed []deviceListing
	if err := json.Unmarshal(js.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v\n%s", err, js.String())
	}
	if len(listed) != 2 || !listed[0].Selected || listed[1].Label != "Camera 2" {
		t.Errorf("listed = %+v", listed)
	}
}

func TestListDevicesEmpty(t *testing.T) {
	src := testsrc.New(testsrc.Options{Devices: []media.DeviceInfo{{ID: "mic", Kind: media.KindAudioInput}}})

	var out bytes.Buffer
	if err := listDevices(context.Background(), src, noDetails{}, &out, false, false); err != nil {
		t.Fatalf("listDevices() error = %v", err)
	}
	if !strings.Contains(out.String(), "No cameras found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestTakeSnapshot(t *testing.T) {
	src := newTestSource()
	path := filepath.Join(t.TempDir(), "photo.jpg")

	r, got, err := takeSnapshot(context.Background(), captureConfig{Source: src, DeviceID: "cam-b", JPEGQuality: 80, Output: path})
	if err != nil {
		t.Fatalf("takeSnapshot() error = %v", err)
	}
	if got != path || r.DeviceID != "cam-b" {
		t.Errorf("saved %q from %q", got, r.DeviceID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("output is not a JPEG")
	}
	if n := src.OpenStreams(); n != 0 {
		t.Errorf("open streams after snapshot = %d", n)
	}
}

func TestTakeSnapshotErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     func() *testsrc.Source
		device  string
		wantErr error
	}{
		{"unknown device", newTestSource, "nope", devices.ErrUnknownDevice},
		{"no cameras", func() *testsrc.Source {
			return testsrc.New(testsrc.Options{Devices: []media.DeviceInfo{{ID: "mic", Kind: media.KindAudioInput}}})
		}, "", media.ErrDeviceUnavailable},
		{"permission denied", func() *testsrc.Source {
			s := newTestSource()
			s.SetPermissionDenied(true)
			return s
		}, "", media.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := takeSnapshot(context.Background(), captureConfig{
				Source:   tt.src(),
				DeviceID: tt.device,
				Output:   filepath.Join(t.TempDir(), "x.jpg"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordForDuration(t *testing.T) {
	src := newTestSource()
	path := filepath.Join(t.TempDir(), "clip.mjpeg")
	factory, err := NewRecorderFactory(RecorderMJPEG, 30*time.Millisecond, "", "")
	if err != nil {
		t.Fatal(err)
	}

	r, got, err := record(context.Background(), captureConfig{Source: src, Recorders: factory, Output: path}, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("record() error = %v", err)
	}
	if got != path || r.Chunks == 0 || len(r.Data) == 0 {
		t.Errorf("result = %s, %d chunks, %d bytes", got, r.Chunks, len(r.Data))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, r.Data) {
		t.Error("file content differs from the result")
	}
}

func TestRecordUntilCancelled(t *testing.T) {
	src := newTestSource()
	factory, _ := NewRecorderFactory(RecorderMJPEG, 30*time.Millisecond, "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	r, _, err := record(ctx, captureConfig{Source: src, Recorders: factory, Output: filepath.Join(t.TempDir(), "clip.mjpeg")}, 0)
	if err != nil {
		t.Fatalf("record() error = %v", err)
	}
	if len(r.Data) == 0 {
		t.Error("cancelled recording kept no data")
	}
}

func TestRecordDeviceLost(t *testing.T) {
	src := newTestSource()
	factory, _ := NewRecorderFactory(RecorderMJPEG, 20*time.Millisecond, "", "")

	go func() {
		time.Sleep(100 * time.Millisecond)
		src.Unplug("cam-a")
	}()

	r, _, err := record(context.Background(), captureConfig{Source: src, Recorders: factory, Output: filepath.Join(t.TempDir(), "clip.mjpeg")}, 5*time.Second)
	if err != nil {
		t.Fatalf("record() error = %v", err)
	}
	if !r.Interrupted {
		t.Error("result from a lost device should be marked interrupted")
	}
}
