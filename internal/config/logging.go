package config

import (
	"log/slog"
	"time"

	"github.com/smazurov/camalbum/internal/logging"
)

// NewLoggingWatcher returns a watcher that re-applies the [logging] table of
// configPath whenever the file changes. Modules absent from the file keep the
// levels in base. The caller starts and stops the watcher.
func NewLoggingWatcher(configPath string, base logging.Config, logger *slog.Logger, debounce time.Duration) *Watcher[logging.Config] {
	opts := []WatcherOption[logging.Config]{
		WithErrorHandler[logging.Config](func(err error) {
			logger.Warn("Keeping previous logging levels", "error", err)
		}),
	}
	opts = append(opts, WithDebounce[logging.Config](debounce))

	w := NewConfigWatcher(configPath, LoadLogging, logger, opts...)
	w.OnReload(func(cfg logging.Config) {
		modules := make(map[string]string, len(base.Modules)+len(cfg.Modules))
		for name, level := range base.Modules {
			modules[name] = level
		}
		for name, level := range cfg.Modules {
			modules[name] = level
		}
		logging.UpdateLevels(cfg.Level, modules)
		logger.Info("Logging levels reloaded", "level", cfg.Level, "modules", len(modules))
	})
	return w
}
