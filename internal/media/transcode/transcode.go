// Package transcode records streams through an ffmpeg subprocess. Frames are
// piped in as MJPEG and the encoded container is read back from stdout.
package transcode

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/camalbum/internal/ffmpeg"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/process"
)

// Options configures transcoding recorders.
type Options struct {
	Params    ffmpeg.RecordParams
	Timeslice time.Duration
	// FrameQuality is the JPEG quality of frames piped into ffmpeg.
	FrameQuality int
	// StopTimeout bounds how long ffmpeg may take to flush after stdin closes.
	StopTimeout time.Duration
}

// DefaultOptions returns a VP9/WebM configuration.
func DefaultOptions() Options {
	return Options{
		Params:       ffmpeg.DefaultRecordParams(),
		Timeslice:    time.Second,
		FrameQuality: 85,
		StopTimeout:  5 * time.Second,
	}
}

// NewFactory returns a media.RecorderFactory backed by ffmpeg.
func NewFactory(opts Options) media.RecorderFactory {
	return media.RecorderFactoryFunc(func(s media.Stream) (media.Recorder, error) {
		return New(s, opts)
	})
}

// Recorder is a media.Recorder that encodes through ffmpeg.
type Recorder struct {
	stream media.Stream
	opts   Options
	params ffmpeg.RecordParams
	logger logging.Logger

	mu      sync.Mutex
	started bool
	proc    *process.Process
	pending []byte

	stopping atomic.Bool
	stop     chan struct{}
	failed   chan error
	done     chan struct{}
}

// New validates the ffmpeg command for s and returns an unstarted recorder.
func New(s media.Stream, opts Options) (*Recorder, error) {
	def := DefaultOptions()
	if opts.Timeslice <= 0 {
		opts.Timeslice = def.Timeslice
	}
	if opts.FrameQuality == 0 {
		opts.FrameQuality = def.FrameQuality
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = def.StopTimeout
	}

	params := opts.Params
	if fr := s.Settings().FrameRate; fr > 0 && (params.FPS <= 0 || fr < params.FPS) {
		params.FPS = fr
	}
	if _, err := ffmpeg.BuildRecordCommand(&params); err != nil {
		return nil, media.NewError(media.CodeRecorderFailure, "invalid recorder configuration", err)
	}

	return &Recorder{
		stream: s,
		opts:   opts,
		params: params,
		logger: logging.GetLogger("media"),
	}, nil
}

// MimeType implements media.Recorder.
func (r *Recorder) MimeType() string {
	return ffmpeg.MimeType(&r.params)
}

// Start implements media.Recorder.
func (r *Recorder) Start(onChunk func([]byte), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("recorder already started")
	}

	command, err := ffmpeg.BuildRecordCommand(&r.params)
	if err != nil {
		return media.NewError(media.CodeRecorderFailure, "build ffmpeg command", err)
	}

	reader, err := r.stream.NewFrameReader()
	if err != nil {
		return media.NewError(media.CodeRecorderFailure, "open frame reader", err)
	}

	proc := process.NewProcess("recorder-"+r.stream.ID(), command, r.logger)
	proc.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
	proc.SetTimeouts(r.opts.StopTimeout, 2*time.Second, 2*time.Second)
	proc.SetDataHandler(func(p []byte) {
		r.mu.Lock()
		r.pending = append(r.pending, p...)
		r.mu.Unlock()
	})
	if err := proc.Start(); err != nil {
		if c, ok := reader.(interface{ Close() error }); ok {
			c.Close()
		}
		return media.NewError(media.CodeRecorderFailure, "start ffmpeg", err)
	}

	r.started = true
	r.proc = proc
	r.stop = make(chan struct{})
	r.failed = make(chan error, 1)
	r.done = make(chan struct{})

	go r.feed(reader)
	go r.loop(onChunk, onError)
	return nil
}

// feed pipes JPEG frames into ffmpeg's stdin.
func (r *Recorder) feed(reader media.FrameReader) {
	if c, ok := reader.(interface{ Close() error }); ok {
		defer c.Close()
	}
	stdin := r.proc.Stdin()

	var minGap time.Duration
	if r.params.FPS > 0 {
		minGap = time.Duration(float64(time.Second) / r.params.FPS)
	}
	var last time.Time

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		img, release, err := reader.Read()
		if err != nil {
			r.fail(fmt.Errorf("read frame: %w", err))
			return
		}
		if minGap > 0 && !last.IsZero() && time.Since(last) < minGap {
			if release != nil {
				release()
			}
			continue
		}
		last = time.Now()

		data, err := media.EncodeJPEG(img, r.opts.FrameQuality)
		if release != nil {
			release()
		}
		if err != nil {
			r.fail(err)
			return
		}
		if _, err := stdin.Write(data); err != nil {
			r.fail(fmt.Errorf("write to ffmpeg: %w", err))
			return
		}
	}
}

func (r *Recorder) fail(err error) {
	if r.stopping.Load() {
		return
	}
	select {
	case r.failed <- err:
	default:
	}
}

func (r *Recorder) take() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

func (r *Recorder) loop(onChunk func([]byte), onError func(error)) {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.Timeslice)
	defer ticker.Stop()

	flush := func() {
		if b := r.take(); len(b) > 0 {
			onChunk(b)
		}
	}

	for {
		select {
		case <-r.stop:
			// ffmpeg writes its trailer after stdin closes.
			<-r.proc.Done()
			flush()
			return
		case <-ticker.C:
			flush()
		case err := <-r.failed:
			r.proc.Stop()
			flush()
			// A broken pipe usually means ffmpeg died; its own message says why.
			if r.proc.ExitCode() != 0 && len(r.proc.LastErrors()) > 0 {
				onError(exitError(r.proc))
			} else {
				onError(media.NewError(media.CodeRecorderFailure, "ffmpeg recording failed", err))
			}
			return
		case <-r.proc.Done():
			if r.stopping.Load() {
				<-r.stop
				flush()
				return
			}
			flush()
			onError(exitError(r.proc))
			return
		}
	}
}

// Stop implements media.Recorder.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.started || r.stopping.Load() {
		done := r.done
		r.mu.Unlock()
		if done != nil {
			<-done
		}
		return nil
	}
	r.stopping.Store(true)
	r.mu.Unlock()

	// Stopping the process first lets a feeder blocked on a full pipe return.
	go r.proc.Stop()
	close(r.stop)
	<-r.done

	if r.proc.ExitCode() != 0 {
		return exitError(r.proc)
	}
	return nil
}

// exitError describes a failed ffmpeg run, quoting its last error line.
func exitError(proc *process.Process) error {
	msg := fmt.Sprintf("ffmpeg exited with code %d", proc.ExitCode())
	if lines := proc.LastErrors(); len(lines) > 0 {
		msg += ": " + lines[len(lines)-1]
	}
	return media.NewError(media.CodeRecorderFailure, msg, nil)
}
