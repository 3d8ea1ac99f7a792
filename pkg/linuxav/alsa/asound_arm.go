//go:build linux && arm

package alsa

import "unsafe"

// uframes is snd_pcm_uframes_t.
type uframes = uint32

const pcmIoctlHwRefine = 0xc25c4110

var (
	_ [376]byte = [unsafe.Sizeof(ctlCardInfo{})]byte{}
	_ [288]byte = [unsafe.Sizeof(pcmInfo{})]byte{}
	_ [604]byte = [unsafe.Sizeof(hwParams{})]byte{}
)
