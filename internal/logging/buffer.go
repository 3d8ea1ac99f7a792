package logging

import (
	"sync"
	"time"
)

// LogEntry is one log record kept for the logs stream.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries. Sequence numbers are
// assigned on write and keep increasing after old entries are overwritten,
// so a reconnecting client can ask for what it missed.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int // slot the next write goes to
	full    bool
	seq     uint64
}

// NewRingBuffer returns a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, overwriting the oldest one when full, and returns the
// sequence number it was given.
func (rb *RingBuffer) Write(entry LogEntry) uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
	return entry.Seq
}

// ReadAll returns every buffered entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Since(0)
}

// Since returns the buffered entries with a sequence number greater than
// after, oldest first.
func (rb *RingBuffer) Since(after uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	ordered := rb.entries[:rb.next]
	if rb.full {
		ordered = append(append([]LogEntry(nil), rb.entries[rb.next:]...), rb.entries[:rb.next]...)
	}

	var out []LogEntry
	for _, e := range ordered {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}
