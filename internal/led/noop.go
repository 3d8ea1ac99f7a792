package led

import "log/slog"

// noop is the Controller for boards without usable LEDs.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, on bool, pattern string) error {
	n.logger.Debug("LED control not available", "led", name, "on", on, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
