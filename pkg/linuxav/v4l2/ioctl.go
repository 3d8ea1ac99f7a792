//go:build linux

package v4l2

import (
	"errors"
	"syscall"
	"unsafe"
)

// ioctl issues req, retrying while the call is interrupted by a signal.
func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
		switch {
		case errno == 0:
			return nil
		case errors.Is(errno, syscall.EINTR):
			continue
		default:
			return errno
		}
	}
}

// openDevice opens a video node for querying. Read access is enough for
// the enumeration ioctls, and non-blocking keeps a busy camera from
// stalling discovery.
func openDevice(path string) (int, error) {
	return syscall.Open(path, syscall.O_RDONLY|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0)
}

func closeDevice(fd int) {
	_ = syscall.Close(fd)
}
