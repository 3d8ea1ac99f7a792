//go:build linux

package cmd

import "github.com/smazurov/camalbum/pkg/linuxav/alsa"

func alsaInputs() ([]AudioInput, error) {
	devices, err := alsa.ListDevices()
	if err != nil {
		return nil, err
	}
	inputs := make([]AudioInput, 0, len(devices))
	for _, d := range devices {
		inputs = append(inputs, AudioInput{Device: d.ALSADevice, Name: d.DeviceName, Card: d.CardName})
	}
	return inputs, nil
}
