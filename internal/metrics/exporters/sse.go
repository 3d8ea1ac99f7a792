package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/metrics"
)

const (
	defaultInterval = time.Second
	// keepaliveTicks forces a publish after this many unchanged ticks so a
	// freshly connected client sees counters without waiting for activity.
	keepaliveTicks = 10
)

// Publisher is the part of the event bus the exporter needs.
type Publisher interface {
	Publish(ev events.Event)
}

// SSEExporter samples the capture metrics and publishes them on the bus
// for the /api/events stream. Unchanged samples are skipped except for a
// periodic keepalive.
type SSEExporter struct {
	bus      Publisher
	interval time.Duration
	snapshot func() metrics.CaptureSnapshot

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSSEExporter creates an exporter publishing to bus once per second.
func NewSSEExporter(bus Publisher) *SSEExporter {
	return &SSEExporter{
		bus:      bus,
		interval: defaultInterval,
		snapshot: metrics.GetCaptureSnapshot,
	}
}

// Start runs the sampling loop until ctx ends or Stop is called. Starting
// a running exporter does nothing.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop ends the loop and waits for it. The exporter can be started again.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *SSEExporter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		last      metrics.CaptureSnapshot
		published bool
		idle      int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		snap := s.snapshot()
		if published && snap == last && idle < keepaliveTicks {
			idle++
			continue
		}
		s.bus.Publish(metricsEvent(snap))
		last, published, idle = snap, true, 0
	}
}

func metricsEvent(m metrics.CaptureSnapshot) events.CaptureMetricsEvent {
	return events.CaptureMetricsEvent{
		EventType:       "capture_metrics",
		State:           m.State,
		Photos:          strconv.Itoa(m.Photos),
		Videos:          strconv.Itoa(m.Videos),
		Bytes:           strconv.FormatInt(m.Bytes, 10),
		RecordingChunks: strconv.Itoa(m.RecordingChunks),
		UploadsOK:       strconv.Itoa(m.UploadsOK),
		UploadsFailed:   strconv.Itoa(m.UploadsFailed),
	}
}

// GetEventTypesForEndpoint returns the SSE event types the exporter adds to
// endpoint, for registering the stream schema.
func GetEventTypesForEndpoint(endpoint string) map[string]any {
	if endpoint != "events" {
		return map[string]any{}
	}
	return map[string]any{"capture-metrics": events.CaptureMetricsEvent{}}
}
