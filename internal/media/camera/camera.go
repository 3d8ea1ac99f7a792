// Package camera opens real cameras through pion/mediadevices.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // registers the V4L2/AVFoundation camera driver
	"github.com/pion/mediadevices/pkg/prop"

	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/media"
)

// Source is a media.Source backed by the mediadevices driver registry.
type Source struct {
	logger logging.Logger

	// Overridable for tests.
	enumerate    func() []mediadevices.MediaDeviceInfo
	getUserMedia func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)
}

// New creates a camera source.
func New() *Source {
	return &Source{
		logger:       logging.GetLogger("media"),
		enumerate:    mediadevices.EnumerateDevices,
		getUserMedia: mediadevices.GetUserMedia,
	}
}

// Devices implements media.Source.
func (s *Source) Devices(_ context.Context) ([]media.DeviceInfo, error) {
	infos := s.enumerate()
	out := make([]media.DeviceInfo, 0, len(infos))
	for _, d := range infos {
		kind := media.KindVideoInput
		if d.Kind == mediadevices.AudioInput {
			kind = media.KindAudioInput
		}
		out = append(out, media.DeviceInfo{ID: d.DeviceID, Label: d.Label, Kind: kind})
	}
	return out, nil
}

type openResult struct {
	stream mediadevices.MediaStream
	err    error
}

// Open implements media.Source. The ideal resolution is tried first; if no
// driver mode fits it the device is reopened once with driver defaults.
func (s *Source) Open(ctx context.Context, deviceID string, c media.Constraints) (media.Stream, error) {
	if !s.present(deviceID) {
		return nil, media.NewError(media.CodeDeviceUnavailable, "device "+deviceID+" not found", nil)
	}

	ms, err := s.open(ctx, deviceID, c)
	if err != nil && c.Audio && ctx.Err() == nil {
		s.logger.Debug("Opening with audio failed, retrying video only", "device", deviceID, "error", err)
		c.Audio = false
		ms, err = s.open(ctx, deviceID, c)
	}
	if err != nil && (c.Width > 0 || c.Height > 0) && isConstraintError(err) && ctx.Err() == nil {
		s.logger.Info("Ideal resolution not supported, using driver default", "device", deviceID, "width", c.Width, "height", c.Height)
		c.Width, c.Height = 0, 0
		ms, err = s.open(ctx, deviceID, c)
	}
	if err != nil {
		return nil, classify(deviceID, err)
	}

	st, err := newStream(deviceID, ms)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Source) present(deviceID string) bool {
	for _, d := range s.enumerate() {
		if d.DeviceID == deviceID && d.Kind == mediadevices.VideoInput {
			return true
		}
	}
	return false
}

// open calls GetUserMedia honouring ctx. A stream that arrives after ctx is
// done is closed immediately.
func (s *Source) open(ctx context.Context, deviceID string, c media.Constraints) (mediadevices.MediaStream, error) {
	constraints := mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			mc.DeviceID = prop.String(deviceID)
			if c.Width > 0 {
				mc.Width = prop.Int(c.Width)
			}
			if c.Height > 0 {
				mc.Height = prop.Int(c.Height)
			}
		},
	}
	if c.Audio {
		constraints.Audio = func(*mediadevices.MediaTrackConstraints) {}
	}

	done := make(chan openResult, 1)
	go func() {
		ms, err := s.getUserMedia(constraints)
		done <- openResult{stream: ms, err: err}
	}()

	select {
	case r := <-done:
		return r.stream, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				closeAll(r.stream)
			}
		}()
		return nil, ctx.Err()
	}
}

func isConstraintError(err error) bool {
	return strings.Contains(err.Error(), "fits the constraints")
}

func classify(deviceID string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, fs.ErrPermission), errors.Is(err, os.ErrPermission),
		strings.Contains(strings.ToLower(err.Error()), "permission denied"):
		return media.NewError(media.CodePermissionDenied, "access to "+deviceID+" denied", err)
	case isConstraintError(err):
		return media.NewError(media.CodeUnsupportedConstraint, "no usable format on "+deviceID, err)
	default:
		return media.NewError(media.CodeDeviceUnavailable, "could not open "+deviceID, err)
	}
}

func closeAll(ms mediadevices.MediaStream) {
	if ms == nil {
		return
	}
	for _, t := range ms.GetTracks() {
		_ = t.Close()
	}
}

// Stream wraps a mediadevices stream as a media.Stream.
type Stream struct {
	id       string
	deviceID string
	ms       mediadevices.MediaStream
	video    *mediadevices.VideoTrack
	settings media.Settings

	stopOnce sync.Once
	stopped  chan struct{}

	mu      sync.Mutex
	ended   func(error)
	fired   bool
	lost    bool // ended before a callback was registered
	lostErr error
}

func newStream(deviceID string, ms mediadevices.MediaStream) (*Stream, error) {
	tracks := ms.GetVideoTracks()
	if len(tracks) == 0 {
		closeAll(ms)
		return nil, media.NewError(media.CodeDeviceUnavailable, "no video track on "+deviceID, nil)
	}
	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		closeAll(ms)
		return nil, media.NewError(media.CodeDeviceUnavailable, fmt.Sprintf("unexpected track type %T", tracks[0]), nil)
	}

	st := &Stream{
		id:       uuid.NewString(),
		deviceID: deviceID,
		ms:       ms,
		video:    vt,
		stopped:  make(chan struct{}),
	}

	// The negotiated resolution is not exposed by the track; read it off the first frame.
	img, release, err := vt.NewReader(false).Read()
	if err != nil {
		closeAll(ms)
		return nil, media.NewError(media.CodeDeviceUnavailable, "camera produced no frames", err)
	}
	b := img.Bounds()
	if release != nil {
		release()
	}
	st.settings = media.Settings{
		Width:    b.Dx(),
		Height:   b.Dy(),
		HasAudio: len(ms.GetAudioTracks()) > 0,
	}

	for _, t := range ms.GetTracks() {
		t.OnEnded(st.handleEnded)
	}
	return st, nil
}

// ID implements media.Stream.
func (st *Stream) ID() string { return st.id }

// DeviceID implements media.Stream.
func (st *Stream) DeviceID() string { return st.deviceID }

// Settings implements media.Stream.
func (st *Stream) Settings() media.Settings { return st.settings }

// NewFrameReader implements media.Stream.
func (st *Stream) NewFrameReader() (media.FrameReader, error) {
	select {
	case <-st.stopped:
		return nil, fmt.Errorf("stream %s stopped", st.id)
	default:
	}
	return st.video.NewReader(false), nil
}

// OnEnded implements media.Stream. A loss that happened before fn was
// registered is reported to fn right away.
func (st *Stream) OnEnded(fn func(error)) {
	st.mu.Lock()
	st.ended = fn
	replay := st.lost && !st.fired && fn != nil
	if replay {
		st.fired = true
	}
	err := st.lostErr
	st.mu.Unlock()

	if replay && !st.isStopped() {
		go fn(err)
	}
}

func (st *Stream) isStopped() bool {
	select {
	case <-st.stopped:
		return true
	default:
		return false
	}
}

func (st *Stream) handleEnded(err error) {
	if st.isStopped() {
		return
	}

	st.mu.Lock()
	if st.fired || st.lost {
		st.mu.Unlock()
		return
	}
	fn := st.ended
	if fn == nil {
		st.lost, st.lostErr = true, err
		st.mu.Unlock()
		return
	}
	st.fired = true
	st.mu.Unlock()

	// The driver calls this from its read loop, which Stop waits on.
	go fn(err)
}

// Stop implements media.Stream.
func (st *Stream) Stop() {
	st.stopOnce.Do(func() {
		close(st.stopped)
		closeAll(st.ms)
	})
}
