//go:build linux

// Package alsa lists ALSA capture devices through the kernel control and
// PCM ioctls, without cgo. Device names use the hw:CARD,DEV form ffmpeg's
// alsa input accepts; ParseALSADevice reads that form back.
package alsa
