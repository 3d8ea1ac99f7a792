// Package testsrc provides a synthetic camera that renders a moving colour
// bar pattern. It backs the "testsrc" capture source and the tests.
package testsrc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/camalbum/internal/media"
)

// Options configures the synthetic source.
type Options struct {
	// Devices lists the simulated cameras. Empty means a single "testsrc0".
	Devices []media.DeviceInfo
	// Width and Height are used when the caller sets no constraint.
	Width  int
	Height int
	FPS    float64
	// MaxWidth and MaxHeight reject larger ideal constraints, exercising the
	// fallback path of the controller. 0 disables the check.
	MaxWidth  int
	MaxHeight int
}

// Source is a media.Source producing test pattern streams.
type Source struct {
	opts Options

	mu      sync.Mutex
	denied  bool
	streams map[string]*Stream
	opened  atomic.Int64
}

// New creates a synthetic source.
func New(opts Options) *Source {
	if len(opts.Devices) == 0 {
		opts.Devices = []media.DeviceInfo{{ID: "testsrc0", Label: "Test Pattern", Kind: media.KindVideoInput}}
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 640, 480
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	return &Source{opts: opts, streams: make(map[string]*Stream)}
}

// Devices implements media.Source.
func (s *Source) Devices(_ context.Context) ([]media.DeviceInfo, error) {
	out := make([]media.DeviceInfo, len(s.opts.Devices))
	copy(out, s.opts.Devices)
	return out, nil
}

// SetPermissionDenied makes subsequent Open calls fail with PermissionDenied.
func (s *Source) SetPermissionDenied(denied bool) {
	s.mu.Lock()
	s.denied = denied
	s.mu.Unlock()
}

// Open implements media.Source.
func (s *Source) Open(ctx context.Context, deviceID string, c media.Constraints) (media.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.denied {
		return nil, media.NewError(media.CodePermissionDenied, "access to "+deviceID+" denied", nil)
	}
	if !s.known(deviceID) {
		return nil, media.NewError(media.CodeDeviceUnavailable, "no such device "+deviceID, nil)
	}
	if _, busy := s.streams[deviceID]; busy {
		return nil, media.NewError(media.CodeDeviceUnavailable, "device "+deviceID+" is busy", nil)
	}

	w, h := s.opts.Width, s.opts.Height
	if c.Width > 0 && c.Height > 0 {
		if (s.opts.MaxWidth == 0 || c.Width <= s.opts.MaxWidth) && (s.opts.MaxHeight == 0 || c.Height <= s.opts.MaxHeight) {
			w, h = c.Width, c.Height
		}
	}

	st := &Stream{
		id:       uuid.NewString(),
		deviceID: deviceID,
		settings: media.Settings{Width: w, Height: h, FrameRate: s.opts.FPS, HasAudio: false},
		done:     make(chan struct{}),
		onClose: func(id string) {
			s.mu.Lock()
			delete(s.streams, id)
			s.mu.Unlock()
		},
	}
	s.streams[deviceID] = st
	s.opened.Add(1)
	return st, nil
}

// Unplug ends the stream open on deviceID as if the camera was disconnected.
func (s *Source) Unplug(deviceID string) bool {
	s.mu.Lock()
	st, ok := s.streams[deviceID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	st.end(errors.New("device disconnected"))
	return true
}

// OpenStreams returns the number of streams currently held open.
func (s *Source) OpenStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Opened returns how many streams were opened in total.
func (s *Source) Opened() int64 {
	return s.opened.Load()
}

func (s *Source) known(id string) bool {
	for _, d := range s.opts.Devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Stream is a synthetic media.Stream.
type Stream struct {
	id       string
	deviceID string
	settings media.Settings
	onClose  func(deviceID string)

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	ended   func(error)
	frameNo atomic.Int64
}

// ID implements media.Stream.
func (st *Stream) ID() string { return st.id }

// DeviceID implements media.Stream.
func (st *Stream) DeviceID() string { return st.deviceID }

// Settings implements media.Stream.
func (st *Stream) Settings() media.Settings { return st.settings }

// OnEnded implements media.Stream.
func (st *Stream) OnEnded(fn func(error)) {
	st.mu.Lock()
	st.ended = fn
	st.mu.Unlock()
}

// Stop implements media.Stream.
func (st *Stream) Stop() {
	st.once.Do(func() {
		close(st.done)
		st.onClose(st.deviceID)
	})
}

func (st *Stream) end(err error) {
	fired := false
	st.once.Do(func() {
		close(st.done)
		st.onClose(st.deviceID)
		fired = true
	})
	if !fired {
		return
	}
	st.mu.Lock()
	fn := st.ended
	st.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// NewFrameReader implements media.Stream.
func (st *Stream) NewFrameReader() (media.FrameReader, error) {
	select {
	case <-st.done:
		return nil, fmt.Errorf("stream %s stopped", st.id)
	default:
	}
	return &reader{stream: st, ticker: time.NewTicker(time.Duration(float64(time.Second) / st.settings.FrameRate))}, nil
}

type reader struct {
	stream *Stream
	ticker *time.Ticker
	first  bool
}

func (r *reader) Read() (image.Image, func(), error) {
	if r.first {
		select {
		case <-r.stream.done:
			return nil, nil, io.EOF
		case <-r.ticker.C:
		}
	}
	r.first = true

	select {
	case <-r.stream.done:
		return nil, nil, io.EOF
	default:
	}
	n := r.stream.frameNo.Add(1)
	return Pattern(r.stream.settings.Width, r.stream.settings.Height, int(n)), nil, nil
}

func (r *reader) Close() error {
	r.ticker.Stop()
	return nil
}

var bars = []color.RGBA{
	{235, 235, 235, 255},
	{235, 235, 16, 255},
	{16, 235, 235, 255},
	{16, 235, 16, 255},
	{235, 16, 235, 255},
	{235, 16, 16, 255},
	{16, 16, 235, 255},
}

// Pattern renders colour bars with a white marker that moves with frame.
func Pattern(w, h, frame int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	barW := max(w/len(bars), 1)
	marker := (frame * 4) % max(w, 1)
	for y := range h {
		for x := range w {
			c := bars[min(x/barW, len(bars)-1)]
			if y > h*3/4 && x >= marker && x < marker+8 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
