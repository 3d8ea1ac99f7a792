// Package cmd holds the camalbum sub-commands and the capture wiring they
// share with the server.
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/media/camera"
	"github.com/smazurov/camalbum/internal/media/testsrc"
	"github.com/smazurov/camalbum/internal/media/transcode"
)

// Capture sources and recorders accepted by the configuration.
const (
	SourceCamera  = "camera"
	SourceTestsrc = "testsrc"

	RecorderMJPEG = "mjpeg"
	RecorderWebM  = "webm"
)

// NewSource returns the capture source named by kind.
func NewSource(kind string) (media.Source, error) {
	switch kind {
	case "", SourceCamera:
		return camera.New(), nil
	case SourceTestsrc:
		return testsrc.New(testsrc.Options{}), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q (want %s or %s)", kind, SourceCamera, SourceTestsrc)
	}
}

// NewRecorderFactory returns the recorder named by kind. A zero timeslice
// keeps the recorder's default. ffmpegPath and audioDevice only apply to
// webm; mjpeg recordings are always silent.
func NewRecorderFactory(kind string, timeslice time.Duration, ffmpegPath, audioDevice string) (media.RecorderFactory, error) {
	switch kind {
	case "", RecorderMJPEG:
		opts := media.DefaultMJPEGOptions()
		if timeslice > 0 {
			opts.Timeslice = timeslice
		}
		return media.NewMJPEGFactory(opts), nil
	case RecorderWebM:
		opts := transcode.DefaultOptions()
		if timeslice > 0 {
			opts.Timeslice = timeslice
		}
		opts.Params.Binary = ffmpegPath
		opts.Params.AudioDevice = audioDevice
		return transcode.NewFactory(opts), nil
	default:
		return nil, fmt.Errorf("unknown recorder %q (want %s or %s)", kind, RecorderMJPEG, RecorderWebM)
	}
}

// Constraints builds capture constraints; non-positive sizes leave the
// choice to the driver.
func Constraints(width, height int, audio bool) media.Constraints {
	c := media.Constraints{Audio: audio}
	if width > 0 && height > 0 {
		c.Width, c.Height = width, height
	}
	return c
}

// AudioInput is an ALSA capture device.
type AudioInput struct {
	Device string `json:"device"` // hw:card,device
	Name   string `json:"name"`
	Card   string `json:"card"`
}

var listAudioInputs = alsaInputs

// ResolveAudioInput picks the ALSA device recordings take audio from. An
// empty preferred selects the first capture device.
func ResolveAudioInput(preferred string) (string, error) {
	inputs, err := listAudioInputs()
	if err != nil {
		return "", media.NewError(media.CodeUnsupportedConstraint, "audio capture unavailable", err)
	}
	if preferred == "" {
		if len(inputs) == 0 {
			return "", media.NewError(media.CodeDeviceUnavailable, "no microphone found", nil)
		}
		return inputs[0].Device, nil
	}
	for _, in := range inputs {
		if in.Device == preferred || strings.TrimPrefix(preferred, "plug") == in.Device {
			return preferred, nil
		}
	}
	return "", media.NewError(media.CodeDeviceUnavailable, "microphone "+preferred+" not found", nil)
}
