package api

import (
	"context"
	"maps"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/metrics/exporters"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for capture state, captures, uploads and device changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func() map[string]any {
		eventTypes := map[string]any{
			"capture-state":    events.CaptureStateEvent{},
			"photo-captured":   events.PhotoCapturedEvent{},
			"video-captured":   events.VideoCapturedEvent{},
			"capture-error":    events.CaptureErrorEvent{},
			"device-discovery": events.DeviceDiscoveryEvent{},
			"device-selected":  events.DeviceSelectedEvent{},
			"media-uploaded":   events.MediaUploadedEvent{},
			"upload-failed":    events.UploadFailedEvent{},
		}

		// Periodic metric snapshots share this endpoint
		maps.Copy(eventTypes, exporters.GetEventTypesForEndpoint("events"))

		return eventTypes
	}(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		stream := events.NewStream(10)
		events.Forward[events.CaptureStateEvent](s.eventBus, stream)
		events.Forward[events.PhotoCapturedEvent](s.eventBus, stream)
		events.Forward[events.VideoCapturedEvent](s.eventBus, stream)
		events.Forward[events.CaptureErrorEvent](s.eventBus, stream)
		events.Forward[events.DeviceDiscoveryEvent](s.eventBus, stream)
		events.Forward[events.DeviceSelectedEvent](s.eventBus, stream)
		events.Forward[events.MediaUploadedEvent](s.eventBus, stream)
		events.Forward[events.UploadFailedEvent](s.eventBus, stream)
		events.Forward[events.CaptureMetricsEvent](s.eventBus, stream)
		defer func() {
			stream.Close()
			if n := stream.Dropped(); n > 0 {
				s.logger.Debug("Event stream dropped events for slow client", "dropped", n)
			}
		}()

		// New clients start from the current state
		if err := send.Data(events.CaptureState(s.controller.Status())); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.C():
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
