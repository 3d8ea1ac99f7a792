//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

// Locations read during enumeration. Tests point them at temp dirs.
var (
	sysClassDir = "/sys/class/video4linux"
	byIDDir     = "/dev/v4l/by-id"
	devDir      = "/dev"
)

// FindDevices finds all V4L2 video capture devices on the system.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysClassDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	logger := slog.With("component", "linuxav")
	var devices []DeviceInfo

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		devicePath := filepath.Join(devDir, name)

		c, err := queryCapability(devicePath)
		if err != nil {
			logger.Debug("failed to query video device", "path", devicePath, "error", err)
			continue
		}

		caps := c.effectiveCaps()
		if caps&capVideoCapture == 0 {
			continue
		}

		index := readSysfsInt(filepath.Join(sysClassDir, name, "index"))
		busInfo := cstr(c.busInfo[:])

		devices = append(devices, DeviceInfo{
			DevicePath: devicePath,
			DeviceName: cstr(c.card[:]),
			DeviceID:   stableID(name, index, busInfo),
			BusInfo:    busInfo,
			Driver:     cstr(c.driver[:]),
			Caps:       caps,
		})
	}

	return devices, nil
}

// GetDevicePathByID finds the device path for a given stable device ID.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}

	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device.DevicePath, nil
		}
	}

	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// CapabilityNames lists the capability flags set in caps.
func CapabilityNames(caps uint32) []string {
	var names []string
	if caps&capVideoCapture != 0 {
		names = append(names, "Video Capture")
	}
	if caps&capStreaming != 0 {
		names = append(names, "Streaming I/O")
	}
	return names
}

func stableID(nodeName string, index int, busInfo string) string {
	if id := findStableID(nodeName, index); id != "" {
		return id
	}
	if strings.HasPrefix(busInfo, "usb-") {
		return fmt.Sprintf("%s-video-index%d", busInfo, index)
	}
	return fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
}

// findStableID looks for a /dev/v4l/by-id symlink pointing at nodeName.
func findStableID(nodeName string, index int) string {
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	suffix := fmt.Sprintf("-video-index%d", index)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(target) == nodeName {
			return entry.Name()
		}
	}
	return ""
}

func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a NUL terminated byte slice to a string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func queryCapability(devicePath string) (*capability, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, err
	}
	defer closeDevice(fd)

	c := &capability{}
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(c)); err != nil {
		return nil, err
	}
	return c, nil
}
