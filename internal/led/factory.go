package led

import (
	"log/slog"
	"os"
	"strings"
)

var deviceTreeModelPath = "/proc/device-tree/model"

// board maps a device tree model fragment to its sysfs LED names.
type board struct {
	model string
	leds  map[string]string
}

var boards = []board{
	{"NanoPC-T6", map[string]string{"user": "usr_led", "system": "sys_led"}},
	{"Orange Pi", map[string]string{"blue": "blue_led", "green": "green_led"}},
	{"Raspberry Pi", map[string]string{"act": "ACT"}},
}

// New detects the board and returns its LED controller, or a no-op
// controller when the board is unknown.
func New(logger *slog.Logger) Controller {
	model := detectBoard()
	for _, b := range boards {
		if strings.Contains(model, b.model) {
			logger.Info("Using sysfs LED controller", "board_model", model)
			return newSysfs(sysfsLEDPath, b.leds)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
