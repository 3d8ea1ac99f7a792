//go:build linux

package v4l2

// DeviceInfo describes a V4L2 capture node.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // stable identifier, from /dev/v4l/by-id or synthetic
	BusInfo    string
	Driver     string
	Caps       uint32
}

// FormatInfo is a pixel format advertised by a device.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution is a frame size.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate is a frame interval expressed as a fraction of a second.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// Capability flags.
const (
	capVideoCapture = 0x00000001
	capStreaming    = 0x04000000
	capDeviceCaps   = 0x80000000
)

const fmtFlagEmulated = 0x0002

// Pixel formats with a known short name.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504A4D // 'MJPG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtHEVC  = 0x43564548 // 'HEVC'
	PixFmtNV12  = 0x3231564E // 'NV12'
	PixFmtYU12  = 0x32315559 // 'YU12'
	PixFmtRGB24 = 0x33424752 // 'RGB3'
	PixFmtBGR24 = 0x33524742 // 'BGR3'
)

const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

const (
	frmivalTypeDiscrete   = 1
	frmivalTypeContinuous = 2
	frmivalTypeStepwise   = 3
)

const bufTypeVideoCapture = 1
