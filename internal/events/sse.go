package events

import (
	"sync"
	"sync/atomic"

	"github.com/kelindar/event"
)

// Stream merges several event types from a bus into one channel for a
// select loop such as an SSE handler. Delivery never blocks the bus: when
// the channel is full the event is dropped and counted.
type Stream struct {
	ch      chan any
	dropped atomic.Uint64

	mu     sync.Mutex
	unsubs []func()
	closed bool
}

// NewStream returns a stream buffering up to size events.
func NewStream(size int) *Stream {
	return &Stream{ch: make(chan any, size)}
}

// Forward subscribes s to events of type T on bus.
func Forward[T Event](bus *Bus, s *Stream) {
	unsub := event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		unsub()
		return
	}
	s.unsubs = append(s.unsubs, unsub)
}

// C returns the receive side of the stream.
func (s *Stream) C() <-chan any { return s.ch }

// Dropped returns how many events did not fit in the buffer.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes every forwarded type. The channel stays open so a
// pending receive cannot observe a zero value.
func (s *Stream) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.closed = true
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
