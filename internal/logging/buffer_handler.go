package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// LogCallback receives every buffered entry. main uses it to publish log
// events on the bus without this package importing events.
type LogCallback func(entry LogEntry)

// secretKeys are attribute names whose values never reach the logs stream.
var secretKeys = map[string]bool{
	"password": true,
	"token":    true,
	"auth":     true,
}

const redacted = "REDACTED"

// BufferHandler records log entries into the shared ring buffer and hands
// them to the log callback. The sink is looked up per record, so loggers
// created before Initialize start buffering once it runs.
type BufferHandler struct {
	level  slog.Leveler
	module string
	attrs  map[string]any
	prefix string
}

// NewBufferHandler creates a buffer handler.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level, module: "app"}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	buffer, callback := bufferSink()
	if buffer == nil && callback == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      LevelName(r.Level),
		Module:     h.module,
		Message:    r.Message,
		Attributes: make(map[string]any, len(h.attrs)+r.NumAttrs()),
	}
	for k, v := range h.attrs {
		entry.Attributes[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" && h.prefix == "" {
			entry.Module = a.Value.String()
			return true
		}
		addAttr(entry.Attributes, h.prefix, a)
		return true
	})

	if buffer != nil {
		entry.Seq = buffer.Write(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// addAttr stores a under prefix+key, flattening groups into dotted keys.
func addAttr(dst map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := prefix + a.Key

	if secretKeys[strings.ToLower(a.Key)] {
		dst[key] = redacted
		return
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		for _, ga := range a.Value.Group() {
			addAttr(dst, key+".", ga)
		}
	case slog.KindTime:
		dst[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			dst[key] = err.Error()
		} else {
			dst[key] = a.Value.Any()
		}
	default:
		dst[key] = a.Value.Any()
	}
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		addAttr(next.attrs, h.prefix, a)
	}
	return next
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *BufferHandler) clone() *BufferHandler {
	attrs := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &BufferHandler{level: h.level, module: h.module, attrs: attrs, prefix: h.prefix}
}

// LevelName returns the lowercase name used in log entries.
func LevelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// AtLeast reports whether an entry level name is at or above floor. An
// unknown floor lets everything through.
func AtLeast(level, floor string) bool {
	threshold, ok := parseLevel(floor)
	if !ok {
		return true
	}
	l, ok := parseLevel(level)
	return !ok || l >= threshold
}
