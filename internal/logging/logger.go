package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Logger is the subset of *slog.Logger that components depend on, so tests
// can pass any compatible logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the output format and the levels. Modules maps a module
// name to a level overriding Level for that module.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// registry owns the module loggers. Each module has its own LevelVar, so a
// logger handed out once follows later level changes.
type registry struct {
	mu        sync.RWMutex
	loggers   map[string]*slog.Logger
	levels    map[string]*slog.LevelVar
	global    slog.LevelVar
	overrides map[string]string
	format    string
	buffer    *RingBuffer
	callback  LogCallback
}

func newRegistry() *registry {
	return &registry{
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
		format:  "text",
	}
}

var std = newRegistry()

// Initialize applies cfg and starts buffering entries for the logs stream.
// Loggers returned by GetLogger before this call stay valid; they are only
// rebuilt when the output format changes.
func Initialize(cfg Config) {
	r := std
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = NewRingBuffer(defaultBufferSize)
	r.setLevelsLocked(cfg.Level, cfg.Modules)

	format := "text"
	if cfg.Format == "json" {
		format = "json"
	}
	if format != r.format {
		r.format = format
		for module, level := range r.levels {
			r.loggers[module] = r.newLoggerLocked(module, level)
		}
	}

	slog.SetDefault(slog.New(createHandler(r.format, &r.global)))
}

// UpdateLevels changes the global and per-module levels of every logger.
// The output format is fixed until restart.
func UpdateLevels(level string, modules map[string]string) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.setLevelsLocked(level, modules)
}

func (r *registry) setLevelsLocked(level string, modules map[string]string) {
	global, ok := parseLevel(level)
	if !ok {
		global = slog.LevelInfo
	}
	r.global.Set(global)
	r.overrides = modules
	for module, lv := range r.levels {
		lv.Set(r.levelForLocked(module))
	}
}

func (r *registry) levelForLocked(module string) slog.Level {
	if l, ok := parseLevel(r.overrides[module]); ok {
		return l
	}
	return r.global.Level()
}

func (r *registry) newLoggerLocked(module string, level slog.Leveler) *slog.Logger {
	return slog.New(createHandler(r.format, level)).With("module", module)
}

// GetBuffer returns the ring buffer behind the logs stream, or nil before
// Initialize.
func GetBuffer() *RingBuffer {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.buffer
}

// SetLogCallback registers fn to receive every buffered entry.
func SetLogCallback(fn LogCallback) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.callback = fn
}

func bufferSink() (*RingBuffer, LogCallback) {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.buffer, std.callback
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	r := std
	r.mu.RLock()
	logger, ok := r.loggers[module]
	r.mu.RUnlock()
	if ok {
		return logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if logger, ok := r.loggers[module]; ok {
		return logger
	}
	lv := &slog.LevelVar{}
	lv.Set(r.levelForLocked(module))
	logger = r.newLoggerLocked(module, lv)
	r.levels[module] = lv
	r.loggers[module] = logger
	return logger
}

// createHandler builds the output chain: stdout when it goes somewhere,
// the journal when present, and always the ring buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))
	return newFanout(handlers...)
}

// isStdoutAvailable reports whether stdout is a terminal, pipe, socket or
// regular file. /dev/null, as under some service managers, is a device.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
