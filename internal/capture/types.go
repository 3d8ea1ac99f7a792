package capture

import (
	"errors"
	"strings"
	"time"
)

// State of a Controller.
type State string

// Controller states.
const (
	StateIdle      State = "idle"      // No stream held
	StateReady     State = "ready"     // Stream open, preview available
	StateRecording State = "recording" // Recording session active
	StateError     State = "error"     // Last acquisition failed or device was lost
)

// ErrInvalidState is returned when an operation is not allowed in the current state.
var ErrInvalidState = errors.New("operation not allowed in current state")

// Kind of a capture result.
type Kind string

// Result kinds.
const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// DisposePolicy decides what happens to a recording when its stream is released.
type DisposePolicy string

// Dispose policies.
const (
	DisposeEmit    DisposePolicy = "emit"    // finalize and deliver the partial recording
	DisposeDiscard DisposePolicy = "discard" // drop it
)

// ParseDisposePolicy parses a configuration value. Unknown values yield DisposeEmit.
func ParseDisposePolicy(s string) DisposePolicy {
	if DisposePolicy(s) == DisposeDiscard {
		return DisposeDiscard
	}
	return DisposeEmit
}

// Result is one captured photo or video. The controller keeps no reference
// after handing it to a callback.
type Result struct {
	ID          string
	Kind        Kind
	DeviceID    string
	MimeType    string
	Data        []byte
	Width       int
	Height      int
	CapturedAt  time.Time
	Duration    time.Duration
	Chunks      int
	Interrupted bool
}

// Extension returns the file extension for the result's MIME type.
func (r Result) Extension() string {
	switch {
	case r.MimeType == "image/jpeg":
		return ".jpg"
	case strings.HasPrefix(r.MimeType, "video/webm"):
		return ".webm"
	case r.MimeType == "video/x-motion-jpeg":
		return ".mjpeg"
	case strings.HasPrefix(r.MimeType, "video/x-matroska"):
		return ".mkv"
	}
	return ".bin"
}

// Status is a point-in-time view of the controller.
type Status struct {
	State          State
	DeviceID       string
	Generation     uint64
	ErrorCode      string
	ErrorMessage   string
	Width          int
	Height         int
	HasAudio       bool
	RecordingSince time.Time
	RecordingMime  string
	Chunks         int
}
