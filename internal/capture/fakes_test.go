package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/smazurov/camalbum/internal/media"
)

// fakeSource is a media.Source whose opens can be gated per device.
type fakeSource struct {
	mu        sync.Mutex
	open      int
	maxOpen   int
	streams   []*fakeStream
	gates     map[string]chan struct{}
	entered   map[string]chan struct{}
	errs      map[string]error
	ignoreCtx bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		gates:   make(map[string]chan struct{}),
		entered: make(map[string]chan struct{}),
		errs:    make(map[string]error),
	}
}

// gate makes the next Open of id block until the returned func is called.
// The entered channel is closed once Open is waiting.
func (s *fakeSource) gate(id string) (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	e := make(chan struct{})
	s.gates[id] = g
	s.entered[id] = e
	var once sync.Once
	return e, func() { once.Do(func() { close(g) }) }
}

func (s *fakeSource) failWith(id string, err error) {
	s.mu.Lock()
	s.errs[id] = err
	s.mu.Unlock()
}

func (s *fakeSource) Devices(context.Context) ([]media.DeviceInfo, error) {
	return []media.DeviceInfo{
		{ID: "A", Label: "Camera A", Kind: media.KindVideoInput},
		{ID: "B", Label: "Camera B", Kind: media.KindVideoInput},
	}, nil
}

func (s *fakeSource) Open(ctx context.Context, id string, c media.Constraints) (media.Stream, error) {
	s.mu.Lock()
	g := s.gates[id]
	e := s.entered[id]
	delete(s.gates, id)
	delete(s.entered, id)
	err := s.errs[id]
	ignoreCtx := s.ignoreCtx
	s.mu.Unlock()

	if g != nil {
		close(e)
		if ignoreCtx {
			<-g
		} else {
			select {
			case <-g:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := &fakeStream{source: s, deviceID: id, width: c.Width, height: c.Height}
	s.streams = append(s.streams, st)
	s.open++
	if s.open > s.maxOpen {
		s.maxOpen = s.open
	}
	return st, nil
}

func (s *fakeSource) openStreams() []*fakeStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeStream
	for _, st := range s.streams {
		if !st.stopped {
			out = append(out, st)
		}
	}
	return out
}

func (s *fakeSource) peakOpen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxOpen
}

type fakeStream struct {
	source   *fakeSource
	deviceID string
	width    int
	height   int
	stopped  bool
	stops    int
	ended    func(error)
}

func (st *fakeStream) ID() string       { return "stream-" + st.deviceID }
func (st *fakeStream) DeviceID() string { return st.deviceID }

func (st *fakeStream) Settings() media.Settings {
	return media.Settings{Width: st.width, Height: st.height}
}

func (st *fakeStream) NewFrameReader() (media.FrameReader, error) {
	return &fakeReader{stream: st}, nil
}

func (st *fakeStream) OnEnded(fn func(error)) {
	st.source.mu.Lock()
	st.ended = fn
	st.source.mu.Unlock()
}

func (st *fakeStream) Stop() {
	st.source.mu.Lock()
	defer st.source.mu.Unlock()
	st.stops++
	if st.stopped {
		return
	}
	st.stopped = true
	st.source.open--
}

// unplug simulates the device going away.
func (st *fakeStream) unplug() {
	st.source.mu.Lock()
	fn := st.ended
	st.source.mu.Unlock()
	if fn != nil {
		fn(errors.New("usb disconnect"))
	}
}

func (st *fakeStream) isStopped() bool {
	st.source.mu.Lock()
	defer st.source.mu.Unlock()
	return st.stopped
}

type fakeReader struct {
	stream *fakeStream
}

func (r *fakeReader) Read() (image.Image, func(), error) {
	if r.stream.isStopped() {
		return nil, nil, io.EOF
	}
	w, h := r.stream.width, r.stream.height
	if w == 0 || h == 0 {
		w, h = 64, 48
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil, nil
}

// fakeRecorder delivers chunks only when the test pushes them.
type fakeRecorder struct {
	mu       sync.Mutex
	onChunk  func([]byte)
	onError  func(error)
	final    []byte
	stopped  bool
	startErr error
	// entered is closed when Start is called; Start then waits for release.
	entered chan struct{}
	release chan struct{}
}

func (r *fakeRecorder) MimeType() string { return "video/webm;codecs=vp9" }

func (r *fakeRecorder) Start(onChunk func([]byte), onError func(error)) error {
	if r.entered != nil {
		close(r.entered)
		<-r.release
	}
	if r.startErr != nil {
		return r.startErr
	}
	r.mu.Lock()
	r.onChunk, r.onError = onChunk, onError
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) push(b []byte) {
	r.mu.Lock()
	fn := r.onChunk
	r.mu.Unlock()
	fn(b)
}

func (r *fakeRecorder) fail(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	fn(err)
}

func (r *fakeRecorder) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *fakeRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true
	if len(r.final) > 0 {
		r.onChunk(r.final)
	}
	return nil
}

type fakeRecorders struct {
	mu   sync.Mutex
	recs []*fakeRecorder
	next *fakeRecorder
}

func (f *fakeRecorders) NewRecorder(media.Stream) (media.Recorder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.next
	if r == nil {
		r = &fakeRecorder{}
	}
	f.next = nil
	f.recs = append(f.recs, r)
	return r, nil
}

func (f *fakeRecorders) last() *fakeRecorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[len(f.recs)-1]
}

// sink records controller callbacks.
type sink struct {
	mu     sync.Mutex
	photos []Result
	videos []Result
	states []Status
	errs   []error
}

func (s *sink) options(src media.Source, recs media.RecorderFactory) Options {
	return Options{
		Source:    src,
		Recorders: recs,
		OnPhotoCaptured: func(r Result) {
			s.mu.Lock()
			s.photos = append(s.photos, r)
			s.mu.Unlock()
		},
		OnVideoCaptured: func(r Result) {
			s.mu.Lock()
			s.videos = append(s.videos, r)
			s.mu.Unlock()
		},
		OnStateChange: func(st Status) {
			s.mu.Lock()
			s.states = append(s.states, st)
			s.mu.Unlock()
		},
		OnError: func(_ string, err error) {
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		},
	}
}

func (s *sink) counts() (photos, videos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos), len(s.videos)
}

func (s *sink) video(i int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[i]
}
