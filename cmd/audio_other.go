//go:build !linux

package cmd

import "errors"

func alsaInputs() ([]AudioInput, error) {
	return nil, errors.New("ALSA capture is only available on linux")
}
