//go:build linux

package alsa

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

// devDir holds the controlC* and pcmC*D*c nodes.
var devDir = "/dev/snd"

// ListDevices returns every PCM device that can capture. A missing
// /dev/snd yields an empty list.
func ListDevices() ([]Device, error) {
	var devices []Device
	for card := 0; ; card++ {
		fd, err := syscall.Open(filepath.Join(devDir, fmt.Sprintf("controlC%d", card)), syscall.O_RDONLY, 0)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			continue
		}
		devices = append(devices, cardDevices(fd, card)...)
		syscall.Close(fd)
	}
	return devices, nil
}

func cardDevices(ctl, card int) []Device {
	var info ctlCardInfo
	if err := ioctl(ctl, ctlIoctlCardInfo, unsafe.Pointer(&info)); err != nil {
		return nil
	}

	var devices []Device
	next := int32(-1)
	for {
		if err := ioctl(ctl, ctlIoctlPCMNextDevice, unsafe.Pointer(&next)); err != nil || next < 0 {
			return devices
		}
		pcm := pcmInfo{device: uint32(next), stream: streamCapture}
		if err := ioctl(ctl, ctlIoctlPCMInfo, unsafe.Pointer(&pcm)); err != nil {
			continue // playback only
		}

		dev := Device{
			CardNumber:   card,
			CardID:       cstr(info.id[:]),
			CardName:     cstr(info.longname[:]),
			DeviceNumber: int(next),
			DeviceName:   cstr(pcm.name[:]),
			ALSADevice:   FormatALSADevice(card, int(next)),
		}
		// Busy devices still enumerate, just without capabilities
		_ = probe(&dev)
		devices = append(devices, dev)
	}
}

// probe fills rates, channels and formats from HW_REFINE.
func probe(dev *Device) error {
	path := filepath.Join(devDir, fmt.Sprintf("pcmC%dD%dc", dev.CardNumber, dev.DeviceNumber))
	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return err
	}
	defer syscall.Close(fd)

	var hw hwParams
	hw.reset()
	hw.setMask(hwParamAccess, accessRWInterleaved)
	if err := ioctl(fd, pcmIoctlHwRefine, unsafe.Pointer(&hw)); err != nil {
		return err
	}

	minCh, maxCh := hw.interval(hwParamChannels)
	dev.MinChannels, dev.MaxChannels = int(minCh), int(maxCh)

	minRate, maxRate := hw.interval(hwParamRate)
	for _, rate := range commonRates {
		if uint32(rate) >= minRate && uint32(rate) <= maxRate {
			dev.SupportedRates = append(dev.SupportedRates, rate)
		}
	}
	for _, f := range probedFormats {
		if hw.hasMask(hwParamFormat, uint32(f)) {
			dev.SupportedFormats = append(dev.SupportedFormats, FormatName(f))
		}
	}
	return nil
}
