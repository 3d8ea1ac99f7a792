package media

import (
	"errors"
	"sync"
	"time"
)

// MimeMJPEG is the MIME type of MJPEG recordings: concatenated JPEG frames.
const MimeMJPEG = "video/x-motion-jpeg"

// MJPEGOptions configures an MJPEG recorder.
type MJPEGOptions struct {
	// Timeslice is how often buffered frames are emitted as a chunk.
	Timeslice time.Duration
	// Quality is the per-frame JPEG quality.
	Quality int
	// MaxFPS drops frames arriving faster than this rate. 0 keeps every frame.
	MaxFPS float64
}

// DefaultMJPEGOptions returns the options used when none are configured.
func DefaultMJPEGOptions() MJPEGOptions {
	return MJPEGOptions{
		Timeslice: time.Second,
		Quality:   80,
		MaxFPS:    15,
	}
}

// NewMJPEGFactory returns a RecorderFactory producing MJPEG recorders.
func NewMJPEGFactory(opts MJPEGOptions) RecorderFactory {
	return RecorderFactoryFunc(func(s Stream) (Recorder, error) {
		return NewMJPEGRecorder(s, opts), nil
	})
}

// MJPEGRecorder encodes every frame of a stream to JPEG and emits the
// concatenated frames once per timeslice.
type MJPEGRecorder struct {
	stream Stream
	opts   MJPEGOptions

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMJPEGRecorder creates a recorder for s.
func NewMJPEGRecorder(s Stream, opts MJPEGOptions) *MJPEGRecorder {
	def := DefaultMJPEGOptions()
	if opts.Timeslice <= 0 {
		opts.Timeslice = def.Timeslice
	}
	if opts.Quality == 0 {
		opts.Quality = def.Quality
	}
	return &MJPEGRecorder{stream: s, opts: opts}
}

// MimeType implements Recorder.
func (r *MJPEGRecorder) MimeType() string {
	return MimeMJPEG
}

type encodedFrame struct {
	data []byte
	err  error
}

// Start implements Recorder.
func (r *MJPEGRecorder) Start(onChunk func([]byte), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("recorder already started")
	}

	reader, err := r.stream.NewFrameReader()
	if err != nil {
		return NewError(CodeRecorderFailure, "open frame reader", err)
	}

	r.started = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	frames := make(chan encodedFrame)
	go r.readFrames(reader, frames)
	go r.loop(frames, onChunk, onError)
	return nil
}

// readFrames encodes frames until the recorder stops. It may stay blocked in
// Read after Stop; the next frame or stream end releases it.
func (r *MJPEGRecorder) readFrames(reader FrameReader, out chan<- encodedFrame) {
	if c, ok := reader.(interface{ Close() error }); ok {
		defer c.Close()
	}

	var minGap time.Duration
	if r.opts.MaxFPS > 0 {
		minGap = time.Duration(float64(time.Second) / r.opts.MaxFPS)
	}
	var last time.Time

	for {
		img, release, err := reader.Read()
		var f encodedFrame
		switch {
		case err != nil:
			f.err = err
		case minGap > 0 && !last.IsZero() && time.Since(last) < minGap:
			if release != nil {
				release()
			}
			continue
		default:
			last = time.Now()
			f.data, f.err = EncodeJPEG(img, r.opts.Quality)
			if release != nil {
				release()
			}
		}

		select {
		case out <- f:
		case <-r.stop:
			return
		}
		if f.err != nil {
			return
		}
	}
}

func (r *MJPEGRecorder) loop(frames <-chan encodedFrame, onChunk func([]byte), onError func(error)) {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.Timeslice)
	defer ticker.Stop()

	var buf []byte
	flush := func() {
		if len(buf) == 0 {
			return
		}
		onChunk(buf)
		buf = nil
	}

	for {
		select {
		case <-r.stop:
			flush()
			return
		case <-ticker.C:
			flush()
		case f := <-frames:
			if f.err != nil {
				flush()
				onError(NewError(CodeRecorderFailure, "read frame", f.err))
				return
			}
			buf = append(buf, f.data...)
		}
	}
}

// Stop implements Recorder.
func (r *MJPEGRecorder) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	done := r.done
	r.mu.Unlock()

	<-done
	return nil
}
