//go:build linux

package v4l2

import "unsafe"

// The enumeration structs have the same layout on 32 and 64 bit targets.
var (
	_ [104]byte = [unsafe.Sizeof(capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(fmtdesc{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(frmsizeenum{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(frmivalenum{})]byte{}
)

const (
	vidiocQuerycap           = 0x80685600
	vidiocEnumFmt            = 0xc0405602
	vidiocEnumFramesizes     = 0xc02c564a
	vidiocEnumFrameintervals = 0xc034564b
)

type capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// effectiveCaps returns the node's own capabilities when the driver reports them.
func (c *capability) effectiveCaps() uint32 {
	if c.capabilities&capDeviceCaps != 0 {
		return c.deviceCaps
	}
	return c.capabilities
}

type fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbusCode    uint32
	reserved    [3]uint32
}

type frmsizeDiscrete struct {
	width  uint32
	height uint32
}

type frmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

type frmsizeenum struct {
	index       uint32
	pixelFormat uint32
	typ         uint32
	discrete    frmsizeDiscrete // union with frmsizeStepwise
	_           [16]byte
	reserved    [2]uint32
}

func (f *frmsizeenum) stepwise() *frmsizeStepwise {
	return (*frmsizeStepwise)(unsafe.Pointer(&f.discrete))
}

type fract struct {
	numerator   uint32
	denominator uint32
}

type frmivalenum struct {
	index       uint32
	pixelFormat uint32
	width       uint32
	height      uint32
	typ         uint32
	discrete    fract // union with min/max/step
	_           [16]byte
	reserved    [2]uint32
}
