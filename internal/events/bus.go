package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(PhotoCapturedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete type
	switch e := ev.(type) {
	case CaptureStateEvent:
		event.Publish(b.dispatcher, e)
	case PhotoCapturedEvent:
		event.Publish(b.dispatcher, e)
	case VideoCapturedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureErrorEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDiscoveryEvent:
		event.Publish(b.dispatcher, e)
	case DeviceSelectedEvent:
		event.Publish(b.dispatcher, e)
	case MediaUploadedEvent:
		event.Publish(b.dispatcher, e)
	case UploadFailedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureMetricsEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e PhotoCapturedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CaptureStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PhotoCapturedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(VideoCapturedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDiscoveryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceSelectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MediaUploadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(UploadFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
