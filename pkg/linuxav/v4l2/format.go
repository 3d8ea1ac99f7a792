//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// GetFormats returns all supported pixel formats for a device.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := fmtdesc{index: i, typ: bufTypeVideoCapture}
		if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
	return formats, nil
}

// GetResolutions returns the frame sizes a device offers for a pixel format.
// Stepwise and continuous ranges are reduced to the common sizes they contain.
func GetResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	var resolutions []Resolution
	for i := uint32(0); ; i++ {
		fs := frmsizeenum{index: i, pixelFormat: pixelFormat}
		if err := ioctl(fd, vidiocEnumFramesizes, unsafe.Pointer(&fs)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			if errors.Is(err, syscall.ENOTTY) {
				return []Resolution{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		switch fs.typ {
		case frmsizeTypeDiscrete:
			resolutions = append(resolutions, Resolution{Width: fs.discrete.width, Height: fs.discrete.height})
		case frmsizeTypeContinuous, frmsizeTypeStepwise:
			sw := fs.stepwise()
			return append(resolutions, commonResolutionsWithin(sw.minWidth, sw.maxWidth, sw.minHeight, sw.maxHeight)...), nil
		}
	}
	return resolutions, nil
}

// GetFramerates returns the frame intervals for a format and frame size.
func GetFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	var framerates []Framerate
	for i := uint32(0); ; i++ {
		fi := frmivalenum{index: i, pixelFormat: pixelFormat, width: width, height: height}
		if err := ioctl(fd, vidiocEnumFrameintervals, unsafe.Pointer(&fi)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}

		switch fi.typ {
		case frmivalTypeDiscrete:
			framerates = append(framerates, Framerate{Numerator: fi.discrete.numerator, Denominator: fi.discrete.denominator})
		case frmivalTypeContinuous, frmivalTypeStepwise:
			return append(framerates, commonFramerates()...), nil
		}
	}
	return framerates, nil
}

var commonResolutions = []Resolution{
	{320, 240},
	{640, 480},
	{800, 600},
	{1024, 768},
	{1280, 720},
	{1280, 960},
	{1280, 1024},
	{1920, 1080},
	{1920, 1200},
	{2560, 1440},
	{3840, 2160},
	{4096, 2160},
}

func commonResolutionsWithin(minW, maxW, minH, maxH uint32) []Resolution {
	var out []Resolution
	for _, r := range commonResolutions {
		if r.Width >= minW && r.Width <= maxW && r.Height >= minH && r.Height <= maxH {
			out = append(out, r)
		}
	}
	return out
}

func commonFramerates() []Framerate {
	return []Framerate{{1, 60}, {1, 50}, {1, 30}, {1, 25}, {1, 20}, {1, 15}, {1, 10}, {1, 5}}
}

// FormatFourCC converts a 4-byte pixel format to its four character code.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}

var shortNames = map[uint32]string{
	PixFmtYUYV:  "yuyv422",
	PixFmtMJPEG: "mjpeg",
	PixFmtH264:  "h264",
	PixFmtHEVC:  "hevc",
	PixFmtNV12:  "nv12",
	PixFmtYU12:  "yu12",
	PixFmtRGB24: "rgb24",
	PixFmtBGR24: "bgr24",
}

// ShortName returns a lowercase name for well known pixel formats and the
// four character code otherwise.
func ShortName(pixelFormat uint32) string {
	if n, ok := shortNames[pixelFormat]; ok {
		return n
	}
	return FormatFourCC(pixelFormat)
}
