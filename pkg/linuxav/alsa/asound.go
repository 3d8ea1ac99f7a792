//go:build linux

package alsa

// Hardware parameter indexes from <sound/asound.h>.
const (
	hwParamAccess        = 0
	hwParamFormat        = 1
	hwParamFirstMask     = 0
	hwParamLastMask      = 2
	hwParamChannels      = 10
	hwParamRate          = 11
	hwParamPeriodSize    = 13
	hwParamBufferSize    = 17
	hwParamFirstInterval = 8
	hwParamLastInterval  = 19

	maskMax = 256

	accessRWInterleaved = 3
)

// Control interface ioctls. These structs carry no pointers so the numbers
// match on every architecture.
const (
	ctlIoctlCardInfo      = 0x81785501
	ctlIoctlPCMNextDevice = 0x80045530
	ctlIoctlPCMInfo       = 0xc1205531
)

// ctlCardInfo is struct snd_ctl_card_info, 376 bytes.
type ctlCardInfo struct {
	card       int32
	_          [4]byte
	id         [16]byte
	driver     [16]byte
	name       [32]byte
	longname   [80]byte
	reserved   [16]byte
	mixername  [80]byte
	components [128]byte
}

// pcmInfo is struct snd_pcm_info, 288 bytes.
type pcmInfo struct {
	device          uint32
	subdevice       uint32
	stream          int32
	card            int32
	id              [64]byte
	name            [80]byte
	subname         [32]byte
	devClass        int32
	devSubclass     int32
	subdevicesCount uint32
	subdevicesAvail uint32
	_               [16]byte
	reserved        [64]byte
}

type mask struct {
	bits [(maskMax + 31) / 32]uint32
}

type interval struct {
	minVal uint32
	maxVal uint32
	bit    uint32
}

// hwParams is struct snd_pcm_hw_params. Its size depends on uframes.
type hwParams struct {
	flags     uint32
	masks     [hwParamLastMask - hwParamFirstMask + 1]mask
	mres      [5]mask
	intervals [hwParamLastInterval - hwParamFirstInterval + 1]interval
	ires      [9]interval
	rmask     uint32
	cmask     uint32
	info      uint32
	msbits    uint32
	rateNum   uint32
	rateDen   uint32
	fifoSize  uframes
	reserved  [64]byte
}

// reset opens every mask and interval so HW_REFINE reports the full range.
func (p *hwParams) reset() {
	for i := range p.masks {
		p.masks[i].bits[0] = 0xFFFFFFFF
		p.masks[i].bits[1] = 0xFFFFFFFF
	}
	for i := range p.intervals {
		p.intervals[i].maxVal = 0xFFFFFFFF
	}
	p.rmask = 0xFFFFFFFF
	p.cmask = 0
	p.info = 0xFFFFFFFF
}

func (p *hwParams) setMask(param, val uint32) {
	p.masks[param].bits[0] = 0
	p.masks[param].bits[1] = 0
	p.masks[param].bits[val>>5] = 1 << (val & 0x1F)
}

func (p *hwParams) hasMask(param, val uint32) bool {
	return p.masks[param].bits[val>>5]&(1<<(val&0x1F)) != 0
}

func (p *hwParams) interval(param uint32) (minVal, maxVal uint32) {
	i := p.intervals[param-hwParamFirstInterval]
	return i.minVal, i.maxVal
}
