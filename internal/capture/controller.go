// Package capture implements the capture controller: the state machine that
// owns one camera stream and turns it into photos and recordings.
//
// The controller is safe for concurrent use. Two locks are involved: mu
// guards controller fields, hwMu serializes every release-then-open of the
// device so two streams are never open at once. Every Acquire and Dispose
// bumps a generation counter; an acquisition whose generation is no longer
// current when it completes stops its stream and changes nothing.
//
// Callbacks and state notifications always run without either lock held,
// so they may call back into the controller.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/metrics"
)

// Options configures a Controller.
type Options struct {
	Source      media.Source
	Recorders   media.RecorderFactory
	Constraints media.Constraints
	// JPEGQuality is the photo quality, 1-100.
	JPEGQuality   int
	DisposePolicy DisposePolicy

	OnPhotoCaptured func(Result)
	OnVideoCaptured func(Result)
	OnStateChange   func(Status)
	OnError         func(deviceID string, err error)
}

// Controller owns the lifecycle of one camera device.
type Controller struct {
	opts   Options
	logger logging.Logger

	hwMu sync.Mutex

	mu        sync.Mutex
	state     State
	deviceID  string
	gen       uint64
	stream    media.Stream
	session   *session
	lastErr   error
	cancelAcq context.CancelFunc
	starting  bool // a recorder is being started outside mu
}

// New creates an idle controller.
func New(opts Options) *Controller {
	if opts.Constraints.Width == 0 && opts.Constraints.Height == 0 {
		opts.Constraints.Width, opts.Constraints.Height = 1280, 720
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = media.DefaultJPEGQuality
	}
	if opts.Recorders == nil {
		opts.Recorders = media.NewMJPEGFactory(media.DefaultMJPEGOptions())
	}
	if opts.DisposePolicy == "" {
		opts.DisposePolicy = DisposeEmit
	}
	return &Controller{
		opts:   opts,
		logger: logging.GetLogger("capture"),
		state:  StateIdle,
	}
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// LastError returns the error behind the current error state, or the last
// recorder failure. Nil after a successful acquisition.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Preview returns the live stream while the controller is ready or recording.
func (c *Controller) Preview() (media.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateRecording {
		return nil, ErrInvalidState
	}
	return c.stream, nil
}

// Acquire opens deviceID, releasing whatever the controller held before.
// Failure is reported through the returned status, never as an error. If a
// newer Acquire or Dispose supersedes this call, its stream is stopped and
// the returned status reflects the newer request.
func (c *Controller) Acquire(ctx context.Context, deviceID string) Status {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancelAcq != nil {
		c.cancelAcq()
	}
	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelAcq = cancel
	old, sess := c.detachLocked()
	c.deviceID = deviceID
	c.state = StateIdle
	c.lastErr = nil
	idle := c.statusLocked()
	c.mu.Unlock()

	c.notify(idle)
	if sess != nil {
		c.finishInterrupted(sess)
	}

	c.hwMu.Lock()
	if old != nil {
		old.Stop()
	}
	if c.superseded(gen) {
		c.hwMu.Unlock()
		c.logger.Debug("Acquisition superseded before open", "device", deviceID, "generation", gen)
		return c.Status()
	}

	start := time.Now()
	stream, err := c.opts.Source.Open(actx, deviceID, c.opts.Constraints)
	if err == nil {
		stream.OnEnded(func(e error) { c.deviceLost(stream, e) })
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		if stream != nil {
			stream.Stop()
		}
		c.hwMu.Unlock()
		c.logger.Debug("Discarding superseded acquisition", "device", deviceID, "generation", gen)
		return c.Status()
	}
	c.cancelAcq = nil

	switch {
	case err == nil:
		c.stream = stream
		c.state = StateReady
	case errors.Is(err, context.Canceled):
		c.state = StateIdle
	default:
		if media.ErrorCode(err) == "" {
			err = media.NewError(media.CodeDeviceUnavailable, "could not open "+deviceID, err)
		}
		c.state = StateError
		c.lastErr = err
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.hwMu.Unlock()

	switch st.State {
	case StateReady:
		metrics.ObserveAcquire(time.Since(start))
		c.logger.Info("Camera acquired", "device", deviceID, "width", st.Width, "height", st.Height, "generation", gen)
	case StateError:
		c.reportError(deviceID, err)
	default:
		c.logger.Info("Acquisition cancelled", "device", deviceID)
	}
	c.notify(st)
	return st
}

// SwitchDevice releases the current stream and acquires deviceID. The last
// of several concurrent requests wins.
func (c *Controller) SwitchDevice(ctx context.Context, deviceID string) Status {
	c.logger.Info("Switching device", "device", deviceID)
	return c.Acquire(ctx, deviceID)
}

// Dispose releases everything from any state. It cancels an in-flight
// acquisition and returns once no device handle is held. Idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	c.gen++
	if c.cancelAcq != nil {
		c.cancelAcq()
		c.cancelAcq = nil
	}
	old, sess := c.detachLocked()
	changed := c.state != StateIdle || c.deviceID != ""
	c.state = StateIdle
	c.deviceID = ""
	c.lastErr = nil
	st := c.statusLocked()
	c.mu.Unlock()

	if sess != nil {
		c.finishInterrupted(sess)
	}

	// Waiting for hwMu also waits out any acquisition still inside Open.
	c.hwMu.Lock()
	if old != nil {
		old.Stop()
	}
	c.hwMu.Unlock()

	if changed {
		c.logger.Info("Capture disposed")
		c.notify(st)
	}
}

// CapturePhoto encodes the current frame as JPEG at its native size and
// hands it to OnPhotoCaptured. Only allowed in the ready state.
func (c *Controller) CapturePhoto(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("Photo rejected", "state", state)
		return Result{}, ErrInvalidState
	}
	stream := c.stream
	c.mu.Unlock()

	type snapshot struct {
		data   []byte
		bounds image.Rectangle
		err    error
	}
	done := make(chan snapshot, 1)
	go func() {
		data, bounds, err := media.Snapshot(stream, c.opts.JPEGQuality)
		done <- snapshot{data, bounds, err}
	}()

	var snap snapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	if snap.err != nil {
		c.logger.Warn("Photo capture failed", "device", stream.DeviceID(), "error", snap.err)
		metrics.IncCaptureError("snapshot")
		return Result{}, fmt.Errorf("capture photo: %w", snap.err)
	}

	r := Result{
		ID:         uuid.NewString(),
		Kind:       KindPhoto,
		DeviceID:   stream.DeviceID(),
		MimeType:   media.MimeJPEG,
		Data:       snap.data,
		Width:      snap.bounds.Dx(),
		Height:     snap.bounds.Dy(),
		CapturedAt: time.Now(),
	}
	metrics.ObserveCapture(string(KindPhoto), len(r.Data))
	c.logger.Info("Photo captured", "id", r.ID, "device", r.DeviceID, "bytes", len(r.Data), "width", r.Width, "height", r.Height)
	if cb := c.opts.OnPhotoCaptured; cb != nil {
		cb(r)
	}
	return r, nil
}

// StartRecording begins a recording session. Only allowed in the ready state.
func (c *Controller) StartRecording(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateReady || c.starting {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("Recording start rejected", "state", state)
		return ErrInvalidState
	}
	c.starting = true
	gen, stream := c.gen, c.stream
	c.mu.Unlock()

	// Recorders may spawn processes; nothing below holds mu until install.
	sess, err := c.startSession(stream)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.gen != gen || c.state != StateReady || c.stream != stream {
		c.mu.Unlock()
		c.logger.Debug("Recording start superseded", "device", sess.deviceID)
		if err := sess.stopRecorder(); err != nil {
			c.logger.Warn("Recorder did not stop cleanly", "error", err)
		}
		metrics.SetRecordingChunks(0)
		return ErrInvalidState
	}
	if sess.hasFailed() {
		c.mu.Unlock()
		metrics.SetRecordingChunks(0)
		return recorderError("start recorder", errors.New("recorder stopped during start"))
	}
	c.session = sess
	c.state = StateRecording
	st := c.statusLocked()
	c.mu.Unlock()

	c.logger.Info("Recording started", "device", sess.deviceID, "mime", sess.mime)
	c.notify(st)
	return nil
}

func (c *Controller) startSession(stream media.Stream) (*session, error) {
	rec, err := c.opts.Recorders.NewRecorder(stream)
	if err != nil {
		return nil, recorderError("create recorder", err)
	}
	sess := newSession(rec, stream)
	if err := rec.Start(sess.addChunk, func(err error) { c.recorderFailed(sess, err) }); err != nil {
		return nil, recorderError("start recorder", err)
	}
	return sess, nil
}

// StopRecording ends the session, concatenates its chunks in arrival order
// and hands the video to OnVideoCaptured. A session without chunks yields an
// empty video. If ctx ends first the video is still finalized and delivered
// to the callback, and ctx.Err() is returned.
func (c *Controller) StopRecording(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("Recording stop rejected", "state", state)
		return Result{}, ErrInvalidState
	}
	sess := c.session
	c.session = nil
	c.state = StateReady
	st := c.statusLocked()
	c.mu.Unlock()

	c.notify(st)

	done := make(chan Result, 1)
	go func() {
		if err := sess.stopRecorder(); err != nil {
			c.logger.Warn("Recorder did not stop cleanly", "error", err)
		}
		r := sess.result(false)
		c.emitVideo(r)
		done <- r
	}()

	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// detachLocked takes the stream and session out of the controller.
func (c *Controller) detachLocked() (media.Stream, *session) {
	st, sess := c.stream, c.session
	c.stream, c.session = nil, nil
	return st, sess
}

func (c *Controller) superseded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

func (c *Controller) statusLocked() Status {
	s := Status{
		State:      c.state,
		DeviceID:   c.deviceID,
		Generation: c.gen,
	}
	if c.lastErr != nil {
		s.ErrorCode = media.ErrorCode(c.lastErr)
		s.ErrorMessage = media.UserMessage(c.lastErr)
	}
	if c.stream != nil {
		set := c.stream.Settings()
		s.Width, s.Height, s.HasAudio = set.Width, set.Height, set.HasAudio
	}
	if c.session != nil {
		s.RecordingSince = c.session.started
		s.RecordingMime = c.session.mime
		s.Chunks = c.session.chunkCount()
	}
	return s
}

func (c *Controller) notify(st Status) {
	metrics.SetCaptureState(string(st.State))
	if cb := c.opts.OnStateChange; cb != nil {
		cb(st)
	}
}

func (c *Controller) reportError(deviceID string, err error) {
	code := media.ErrorCode(err)
	c.logger.Error("Capture error", "device", deviceID, "code", code, "error", err)
	metrics.IncCaptureError(code)
	if cb := c.opts.OnError; cb != nil {
		cb(deviceID, err)
	}
}

func (c *Controller) emitVideo(r Result) {
	metrics.ObserveCapture(string(KindVideo), len(r.Data))
	c.logger.Info("Video captured", "id", r.ID, "device", r.DeviceID, "bytes", len(r.Data),
		"chunks", r.Chunks, "duration", r.Duration, "interrupted", r.Interrupted)
	if cb := c.opts.OnVideoCaptured; cb != nil {
		cb(r)
	}
}

// finishInterrupted ends a session whose stream is being released.
func (c *Controller) finishInterrupted(sess *session) {
	if err := sess.stopRecorder(); err != nil {
		c.logger.Warn("Recorder did not stop cleanly", "error", err)
	}
	if c.opts.DisposePolicy == DisposeDiscard {
		c.logger.Info("Discarding interrupted recording", "device", sess.deviceID, "chunks", sess.chunkCount())
		metrics.SetRecordingChunks(0)
		return
	}
	c.emitVideo(sess.result(true))
}

// deviceLost handles a stream that ended without being stopped.
func (c *Controller) deviceLost(stream media.Stream, cause error) {
	c.mu.Lock()
	if c.stream != stream {
		c.mu.Unlock()
		return
	}
	old, sess := c.detachLocked()
	deviceID := c.deviceID
	err := media.NewError(media.CodeDeviceUnavailable, "camera disconnected", cause)
	c.state = StateError
	c.lastErr = err
	st := c.statusLocked()
	c.mu.Unlock()

	c.reportError(deviceID, err)
	if sess != nil {
		c.finishInterrupted(sess)
	}
	c.hwMu.Lock()
	old.Stop()
	c.hwMu.Unlock()
	c.notify(st)
}

// recorderFailed runs on the recorder's goroutine.
func (c *Controller) recorderFailed(sess *session, err error) {
	sess.markFailed()

	// A reader hitting end of stream means the device went away.
	if errors.Is(err, io.EOF) {
		c.deviceLost(sess.stream, err)
		return
	}

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	failure := recorderError("recording failed", err)
	c.session = nil
	c.state = StateReady
	c.lastErr = failure
	st := c.statusLocked()
	c.mu.Unlock()

	metrics.SetRecordingChunks(0)
	c.reportError(sess.deviceID, failure)
	c.notify(st)
}

func recorderError(msg string, err error) error {
	if media.ErrorCode(err) == media.CodeRecorderFailure {
		return err
	}
	return media.NewError(media.CodeRecorderFailure, msg, err)
}
