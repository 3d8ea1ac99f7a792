package capture

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/metrics"
)

// session accumulates the chunks of one recording.
type session struct {
	rec      media.Recorder
	stream   media.Stream
	deviceID string
	mime     string
	width    int
	height   int
	started  time.Time

	mu     sync.Mutex
	chunks [][]byte
	failed bool
}

func newSession(rec media.Recorder, stream media.Stream) *session {
	s := stream.Settings()
	return &session{
		rec:      rec,
		stream:   stream,
		deviceID: stream.DeviceID(),
		mime:     rec.MimeType(),
		width:    s.Width,
		height:   s.Height,
		started:  time.Now(),
	}
}

// addChunk is the recorder's chunk callback. Empty chunks are ignored.
func (s *session) addChunk(b []byte) {
	if len(b) == 0 {
		return
	}
	chunk := make([]byte, len(b))
	copy(chunk, b)

	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	n := len(s.chunks)
	s.mu.Unlock()
	metrics.SetRecordingChunks(n)
}

func (s *session) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// markFailed records that the recorder already stopped on its own.
func (s *session) markFailed() {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()
}

func (s *session) hasFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// stopRecorder flushes the recorder unless it already failed. It must not be
// called from a recorder callback.
func (s *session) stopRecorder() error {
	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()
	if failed {
		return nil
	}
	return s.rec.Stop()
}

// result concatenates the chunks in arrival order.
func (s *session) result(interrupted bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	for _, c := range s.chunks {
		buf.Write(c)
	}
	data := buf.Bytes()
	if data == nil {
		data = []byte{}
	}
	metrics.SetRecordingChunks(0)

	return Result{
		ID:          uuid.NewString(),
		Kind:        KindVideo,
		DeviceID:    s.deviceID,
		MimeType:    s.mime,
		Data:        data,
		Width:       s.width,
		Height:      s.height,
		CapturedAt:  time.Now(),
		Duration:    time.Since(s.started),
		Chunks:      len(s.chunks),
		Interrupted: interrupted,
	}
}
