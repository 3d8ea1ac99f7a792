//go:build linux && (amd64 || arm64)

package alsa

import "unsafe"

// uframes is snd_pcm_uframes_t.
type uframes = uint64

const pcmIoctlHwRefine = 0xc2604110

var (
	_ [376]byte = [unsafe.Sizeof(ctlCardInfo{})]byte{}
	_ [288]byte = [unsafe.Sizeof(pcmInfo{})]byte{}
	_ [608]byte = [unsafe.Sizeof(hwParams{})]byte{}
)
