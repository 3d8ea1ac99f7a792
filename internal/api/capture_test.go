package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/media/testsrc"
)

// gatedSource holds Open of one device until the test lets it through or
// the acquisition is cancelled.
type gatedSource struct {
	media.Source

	mu      sync.Mutex
	device  string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) Open(ctx context.Context, id string, c media.Constraints) (media.Stream, error) {
	g.mu.Lock()
	gated := id == g.device
	if gated {
		g.device = ""
	}
	g.mu.Unlock()
	if gated {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.Source.Open(ctx, id, c)
}

func TestDeviceRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/devices", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/devices status = %d: %s", status, body)
	}
	list := decode[models.DeviceData](t, body)
	if list.Count != 2 || list.Selected != "cam-a" {
		t.Fatalf("devices = %+v, want 2 with cam-a selected", list)
	}
	if list.Devices[1].Label != "Camera 2" {
		t.Errorf("fallback label = %q, want Camera 2", list.Devices[1].Label)
	}
	if !list.Devices[0].Selected || list.Devices[1].Selected {
		t.Errorf("selected flags wrong: %+v", list.Devices)
	}

	status, body = env.do(t, http.MethodPost, "/api/devices/select", map[string]string{"device_id": "cam-b"})
	if status != http.StatusOK {
		t.Fatalf("select status = %d: %s", status, body)
	}
	if got := decode[models.DeviceData](t, body).Selected; got != "cam-b" {
		t.Errorf("selected = %q, want cam-b", got)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"select unknown", http.MethodPost, "/api/devices/select", map[string]string{"device_id": "nope"}, http.StatusNotFound},
		{"select empty", http.MethodPost, "/api/devices/select", map[string]string{"device_id": ""}, http.StatusUnprocessableEntity},
		{"formats unknown", http.MethodGet, "/api/devices/nope/formats", nil, http.StatusNotFound},
		{"formats without v4l2", http.MethodGet, "/api/devices/cam-a/formats", nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, body := env.do(t, tt.method, tt.path, tt.body); status != tt.want {
				t.Errorf("status = %d, want %d: %s", status, tt.want, body)
			}
		})
	}
}

func TestCaptureLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/capture", nil)
	if status != http.StatusOK || decode[models.CaptureStatusData](t, body).State != "idle" {
		t.Fatalf("initial status = %d %s, want idle", status, body)
	}

	// Nothing to photograph yet
	if status, _ := env.do(t, http.MethodPost, "/api/capture/photo", nil); status != http.StatusConflict {
		t.Errorf("photo while idle status = %d, want 409", status)
	}

	status, body = env.do(t, http.MethodPost, "/api/capture/acquire", map[string]string{})
	if status != http.StatusOK {
		t.Fatalf("acquire status = %d: %s", status, body)
	}
	st := decode[models.CaptureStatusData](t, body)
	if st.State != "ready" || st.DeviceID != "cam-a" || st.Width != 64 || st.Height != 48 {
		t.Fatalf("acquired status = %+v", st)
	}

	status, body = env.do(t, http.MethodPost, "/api/capture/photo", nil)
	if status != http.StatusOK {
		t.Fatalf("photo status = %d: %s", status, body)
	}
	photo := decode[models.CaptureResultData](t, body)
	img, err := base64.StdEncoding.DecodeString(photo.ImageData)
	if err != nil || !bytes.HasPrefix(img, []byte{0xFF, 0xD8}) {
		t.Fatalf("photo image_data is not a JPEG (err %v)", err)
	}
	if photo.Kind != "photo" || photo.MimeType != "image/jpeg" || photo.Size != len(img) {
		t.Errorf("photo result = %+v", photo)
	}

	status, body = env.do(t, http.MethodPost, "/api/capture/recording", nil)
	if status != http.StatusOK || decode[models.CaptureStatusData](t, body).State != "recording" {
		t.Fatalf("start recording = %d %s", status, body)
	}
	if status, _ := env.do(t, http.MethodPost, "/api/capture/recording", nil); status != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", status)
	}

	time.Sleep(120 * time.Millisecond)

	status, body = env.do(t, http.MethodDelete, "/api/capture/recording", nil)
	if status != http.StatusOK {
		t.Fatalf("stop recording = %d %s", status, body)
	}
	video := decode[models.CaptureResultData](t, body)
	if video.Kind != "video" || video.Size == 0 || video.Chunks == 0 {
		t.Errorf("video result = %+v", video)
	}

	photos, videos := env.results.counts()
	if photos != 1 || videos != 1 {
		t.Errorf("callbacks saw %d photos and %d videos, want 1 and 1", photos, videos)
	}

	status, body = env.do(t, http.MethodPost, "/api/capture/dispose", nil)
	if status != http.StatusOK || decode[models.CaptureStatusData](t, body).State != "idle" {
		t.Fatalf("dispose = %d %s", status, body)
	}
	if n := env.src.OpenStreams(); n != 0 {
		t.Errorf("open streams after dispose = %d", n)
	}
}

func TestAcquireSpecificDevice(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodPost, "/api/capture/acquire", map[string]string{"device_id": "cam-b"})
	if status != http.StatusOK {
		t.Fatalf("acquire status = %d: %s", status, body)
	}
	if st := decode[models.CaptureStatusData](t, body); st.DeviceID != "cam-b" || st.State != "ready" {
		t.Errorf("status = %+v, want ready on cam-b", st)
	}

	_, body = env.do(t, http.MethodGet, "/api/devices", nil)
	if sel := decode[models.DeviceData](t, body).Selected; sel != "cam-b" {
		t.Errorf("selected = %q, want cam-b", sel)
	}

	if status, _ := env.do(t, http.MethodPost, "/api/capture/acquire", map[string]string{"device_id": "missing"}); status != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", status)
	}
}

func TestSupersededAcquireDoesNotSelect(t *testing.T) {
	var ctrl *capture.Controller
	var gate *gatedSource
	env := newTestEnv(t, func(o *Options) {
		gate = &gatedSource{
			Source: testsrc.New(testsrc.Options{Devices: []media.DeviceInfo{
				{ID: "cam-a", Kind: media.KindVideoInput},
				{ID: "cam-b", Kind: media.KindVideoInput},
			}}),
			device:  "cam-b",
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		ctrl = capture.New(capture.Options{Source: gate, Constraints: media.Constraints{Width: 64, Height: 48}})
		t.Cleanup(ctrl.Dispose)
		o.Controller = ctrl
	})

	type reply struct {
		status int
		st     models.CaptureStatusData
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/api/capture/acquire", bytes.NewReader([]byte(`{"device_id":"cam-b"}`)))
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(testUser, testPass)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			done <- reply{err: err}
			return
		}
		defer resp.Body.Close()
		var r reply
		r.status = resp.StatusCode
		r.err = json.NewDecoder(resp.Body).Decode(&r.st)
		done <- r
	}()

	<-gate.entered
	// A newer request for cam-a supersedes the one still opening cam-b.
	if st := ctrl.Acquire(context.Background(), "cam-a"); st.State != capture.StateReady {
		t.Fatalf("Acquire(cam-a) state = %s", st.State)
	}
	close(gate.release)

	r := <-done
	if r.err != nil || r.status != http.StatusOK {
		t.Fatalf("acquire cam-b = %d, %v", r.status, r.err)
	}
	if r.st.DeviceID == "cam-b" {
		t.Errorf("superseded acquire reported cam-b: %+v", r.st)
	}

	_, body := env.do(t, http.MethodGet, "/api/devices", nil)
	if sel := decode[models.DeviceData](t, body).Selected; sel != "cam-a" {
		t.Errorf("selected = %q, want cam-a after the superseded acquire", sel)
	}
	if st := ctrl.Status(); st.DeviceID != "cam-a" || st.State != capture.StateReady {
		t.Errorf("controller = %s on %q, want ready on cam-a", st.State, st.DeviceID)
	}
}

func TestAcquireFailureReportedInStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.src.SetPermissionDenied(true)

	status, body := env.do(t, http.MethodPost, "/api/capture/acquire", map[string]string{})
	if status != http.StatusOK {
		t.Fatalf("acquire status = %d: %s", status, body)
	}
	st := decode[models.CaptureStatusData](t, body)
	if st.State != "error" || st.ErrorCode != "permission_denied" || st.ErrorMessage == "" {
		t.Errorf("status = %+v, want permission_denied error", st)
	}
}
