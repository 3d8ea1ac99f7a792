package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// PreviewSettings are the live preview knobs that can change without a
// restart. Zero fields mean "use the server default".
type PreviewSettings struct {
	FPS     int `toml:"preview_fps"`
	Quality int `toml:"preview_quality"`
}

// LoadPreview reads preview_fps and preview_quality from the [capture]
// table of configPath. Keys absent from the file fall back to base.
func LoadPreview(configPath string, base PreviewSettings) (PreviewSettings, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	raw := struct {
		Capture PreviewSettings `toml:"capture"`
	}{Capture: base}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return base, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if q := raw.Capture.Quality; q < 0 || q > 100 {
		return base, fmt.Errorf("capture.preview_quality %d out of range 1-100", q)
	}
	if raw.Capture.FPS < 0 {
		return base, fmt.Errorf("capture.preview_fps %d must not be negative", raw.Capture.FPS)
	}
	return raw.Capture, nil
}

// NewPreviewWatcher returns a watcher that calls apply when the preview keys
// of configPath change. Other edits to the file are ignored.
func NewPreviewWatcher(configPath string, base PreviewSettings, apply func(PreviewSettings), logger *slog.Logger, debounce time.Duration) *Watcher[PreviewSettings] {
	load := func(path string) (PreviewSettings, error) { return LoadPreview(path, base) }
	w := NewConfigWatcher(configPath, load, logger,
		WithDebounce[PreviewSettings](debounce),
		WithEqual(func(a, b PreviewSettings) bool { return a == b }),
		WithErrorHandler[PreviewSettings](func(err error) {
			logger.Warn("Keeping previous preview settings", "error", err)
		}),
	)
	w.OnReload(func(p PreviewSettings) {
		apply(p)
		logger.Info("Preview settings reloaded", "fps", p.FPS, "quality", p.Quality)
	})
	return w
}
