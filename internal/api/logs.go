package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/logging"
)

// registerLogRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func() map[string]any {
		return map[string]any{
			"message": events.LogEntryEvent{},
		}
	}(), func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		// Subscribe before replaying so nothing falls between history and
		// live entries; duplicates are skipped by sequence number.
		stream := events.NewStream(100)
		events.Forward[events.LogEntryEvent](s.eventBus, stream)
		defer stream.Close()

		last := input.LastEventID
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Since(last) {
				last = entry.Seq
				if !logging.AtLeast(entry.Level, input.Level) {
					continue
				}
				if err := sendLogEntry(send, LogEntryEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.C():
				e, ok := event.(events.LogEntryEvent)
				if !ok || (e.Seq != 0 && e.Seq <= last) || !logging.AtLeast(e.Level, input.Level) {
					continue
				}
				if err := sendLogEntry(send, e); err != nil {
					return
				}
			}
		}
	})
}

// LogStreamInput selects where a log stream resumes and how verbose it is.
type LogStreamInput struct {
	LastEventID uint64 `header:"Last-Event-ID" doc:"Resume after this sequence number"`
	Level       string `query:"level" doc:"Minimum level (debug, info, warn, error)"`
}

// sendLogEntry sends e with its sequence number as the SSE id so browsers
// reconnect with Last-Event-ID.
func sendLogEntry(send sse.Sender, e events.LogEntryEvent) error {
	return send(sse.Message{ID: int(e.Seq), Data: e})
}

// LogEntryEvent converts a buffered log entry to its SSE form.
func LogEntryEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
