//go:build linux

package alsa

import (
	"fmt"
	"strconv"
)

// Device is a PCM capture endpoint.
type Device struct {
	CardNumber       int
	CardID           string
	CardName         string
	DeviceNumber     int
	DeviceName       string
	ALSADevice       string // hw:card,device
	SupportedRates   []int
	MinChannels      int
	MaxChannels      int
	SupportedFormats []string
}

// FormatALSADevice returns the hw:card,device name ffmpeg and arecord take.
func FormatALSADevice(cardNum, deviceNum int) string {
	return "hw:" + strconv.Itoa(cardNum) + "," + strconv.Itoa(deviceNum)
}

// ParseALSADevice splits a hw:card,device name. plughw: is accepted too.
func ParseALSADevice(name string) (card, device int, err error) {
	if _, err = fmt.Sscanf(name, "hw:%d,%d", &card, &device); err == nil {
		return card, device, nil
	}
	if _, err = fmt.Sscanf(name, "plughw:%d,%d", &card, &device); err == nil {
		return card, device, nil
	}
	return 0, 0, fmt.Errorf("invalid ALSA device %q", name)
}

const streamCapture = 1

// PCM formats from <sound/asound.h>.
const (
	FormatS8        = 0
	FormatU8        = 1
	FormatS16LE     = 2
	FormatS16BE     = 3
	FormatS24LE     = 6
	FormatS24BE     = 7
	FormatS32LE     = 10
	FormatS32BE     = 11
	FormatFloatLE   = 14
	FormatFloatBE   = 15
	FormatFloat64LE = 16
	FormatFloat64BE = 17
)

var formatNames = map[int]string{
	FormatS8:        "S8",
	FormatU8:        "U8",
	FormatS16LE:     "S16_LE",
	FormatS16BE:     "S16_BE",
	FormatS24LE:     "S24_LE",
	FormatS24BE:     "S24_BE",
	FormatS32LE:     "S32_LE",
	FormatS32BE:     "S32_BE",
	FormatFloatLE:   "FLOAT_LE",
	FormatFloatBE:   "FLOAT_BE",
	FormatFloat64LE: "FLOAT64_LE",
	FormatFloat64BE: "FLOAT64_BE",
}

// FormatName returns the ALSA name of a PCM format.
func FormatName(format int) string {
	if name, ok := formatNames[format]; ok {
		return name
	}
	return "UNKNOWN"
}

// commonRates are reported when they fall inside the device's rate range.
var commonRates = []int{8000, 11025, 16000, 22050, 32000, 44100, 48000, 96000}

var probedFormats = []int{
	FormatU8, FormatS16LE, FormatS16BE, FormatS24LE, FormatS24BE,
	FormatS32LE, FormatS32BE, FormatFloatLE, FormatFloatBE,
}
