// Package media defines the camera and recorder abstractions the capture
// controller is built on, plus the pure Go implementations shared by every
// backend: JPEG snapshots and the MJPEG chunk recorder.
package media

import (
	"context"
	"image"
)

// Kind values reported by Source.Devices.
const (
	KindVideoInput = "videoinput"
	KindAudioInput = "audioinput"
)

// DeviceInfo describes one capture device as reported by a backend.
type DeviceInfo struct {
	ID    string
	Label string
	Kind  string
}

// Constraints are the requested stream properties. Width and Height are
// ideal values: a backend that cannot honour them falls back to its default.
// Zero means no preference.
type Constraints struct {
	Width  int
	Height int
	Audio  bool
}

// Settings are the properties a stream actually delivers.
type Settings struct {
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
}

// FrameReader delivers decoded video frames. release must be called once the
// frame is no longer used; it may be nil.
type FrameReader interface {
	Read() (img image.Image, release func(), err error)
}

// Stream is an exclusive handle on a live device feed.
type Stream interface {
	ID() string
	DeviceID() string
	Settings() Settings
	// NewFrameReader returns an independent reader over the video track.
	NewFrameReader() (FrameReader, error)
	// OnEnded registers a callback invoked once if the feed ends without Stop,
	// e.g. when the device is unplugged.
	OnEnded(func(error))
	// Stop releases every track. Safe to call more than once.
	Stop()
}

// Source opens streams on capture devices.
type Source interface {
	Devices(ctx context.Context) ([]DeviceInfo, error)
	Open(ctx context.Context, deviceID string, c Constraints) (Stream, error)
}

// Recorder encodes a stream into ordered chunks.
type Recorder interface {
	MimeType() string
	// Start begins encoding. onChunk and onError are called from a single
	// goroutine, so chunks arrive in encoding order.
	Start(onChunk func([]byte), onError func(error)) error
	// Stop ends encoding and delivers the final chunk before returning.
	// No callback fires after Stop returns.
	Stop() error
}

// RecorderFactory creates a recorder bound to a stream.
type RecorderFactory interface {
	NewRecorder(s Stream) (Recorder, error)
}

// RecorderFactoryFunc adapts a function to RecorderFactory.
type RecorderFactoryFunc func(s Stream) (Recorder, error)

// NewRecorder calls f(s).
func (f RecorderFactoryFunc) NewRecorder(s Stream) (Recorder, error) {
	return f(s)
}

// VideoDevices filters a device list down to video inputs.
func VideoDevices(devs []DeviceInfo) []DeviceInfo {
	out := make([]DeviceInfo, 0, len(devs))
	for _, d := range devs {
		if d.Kind == KindVideoInput {
			out = append(out, d)
		}
	}
	return out
}
