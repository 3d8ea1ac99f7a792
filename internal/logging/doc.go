// Package logging provides slog loggers with per-module levels.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"capture": "debug"},
//	})
//	logger := logging.GetLogger("capture")
//
// Loggers obtained before Initialize pick up the configured levels once it
// runs, and [UpdateLevels] changes them while the service is running.
//
// Every record goes to up to three outputs:
//
//   - stdout as text or JSON, when stdout is a terminal, pipe or file
//   - the systemd journal, when its socket exists, with attributes as
//     uppercase fields (journalctl -t camalbum MODULE=album)
//   - an in-memory ring buffer that backs the /api/logs/stream endpoint
//
// Attributes named password, token or auth are redacted in the journal
// and the buffer.
//
// In the config file, module levels sit next to the global level:
//
//	[logging]
//	level = "info"
//	format = "text"
//	capture = "debug"
//	album = "warn"
package logging
