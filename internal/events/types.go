package events

import "github.com/smazurov/camalbum/internal/api/models"

// Event type constants for kelindar/event.
const (
	TypeCaptureState uint32 = iota + 1
	TypePhotoCaptured
	TypeVideoCaptured
	TypeCaptureError
	TypeDeviceDiscovery
	TypeDeviceSelected
	TypeMediaUploaded
	TypeUploadFailed
	TypeCaptureMetrics
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureStateEvent is published on every capture controller state change.
type CaptureStateEvent struct {
	State        string `json:"state" example:"ready" doc:"Controller state: idle, ready, recording, error"`
	DeviceID     string `json:"device_id,omitempty" doc:"Device the controller is bound to"`
	Generation   uint64 `json:"generation" doc:"Acquisition generation"`
	ErrorCode    string `json:"error_code,omitempty" example:"permission_denied" doc:"Last error code"`
	ErrorMessage string `json:"error_message,omitempty" doc:"User facing error message"`
	Timestamp    string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateEvent.
func (e CaptureStateEvent) Type() uint32 { return TypeCaptureState }

// PhotoCapturedEvent represents a successful photo capture.
type PhotoCapturedEvent struct {
	ID        string `json:"id" doc:"Capture identifier"`
	DeviceID  string `json:"device_id" doc:"Source device"`
	MimeType  string `json:"mime_type" example:"image/jpeg" doc:"MIME type"`
	Width     int    `json:"width" example:"1280" doc:"Frame width"`
	Height    int    `json:"height" example:"720" doc:"Frame height"`
	Size      int    `json:"size" doc:"Encoded size in bytes"`
	ImageData string `json:"image_data" doc:"Base64-encoded JPEG"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for PhotoCapturedEvent.
func (e PhotoCapturedEvent) Type() uint32 { return TypePhotoCaptured }

// VideoCapturedEvent represents a finished recording.
type VideoCapturedEvent struct {
	ID          string `json:"id" doc:"Capture identifier"`
	DeviceID    string `json:"device_id" doc:"Source device"`
	MimeType    string `json:"mime_type" example:"video/webm;codecs=vp9" doc:"MIME type"`
	Size        int    `json:"size" doc:"Recording size in bytes"`
	Chunks      int    `json:"chunks" doc:"Number of chunks concatenated"`
	DurationMs  int64  `json:"duration_ms" doc:"Recording duration"`
	Interrupted bool   `json:"interrupted" doc:"Finalized because the stream was released"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for VideoCapturedEvent.
func (e VideoCapturedEvent) Type() uint32 { return TypeVideoCaptured }

// CaptureErrorEvent represents a failed acquisition, photo or recording.
type CaptureErrorEvent struct {
	DeviceID  string `json:"device_id" doc:"Device involved"`
	Code      string `json:"code" example:"device_unavailable" doc:"Error code"`
	Message   string `json:"message" doc:"User facing message"`
	Error     string `json:"error" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// DeviceDiscoveryEvent represents device hotplug events.
type DeviceDiscoveryEvent struct {
	models.DeviceInfo
	Action    string `json:"action" example:"added" doc:"Action type: added, removed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// DeviceSelectedEvent is published when the selected device changes.
type DeviceSelectedEvent struct {
	DeviceID  string `json:"device_id" doc:"Newly selected device"`
	Previous  string `json:"previous,omitempty" doc:"Previously selected device"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceSelectedEvent.
func (e DeviceSelectedEvent) Type() uint32 { return TypeDeviceSelected }

// MediaUploadedEvent is published when a capture reached the album backend.
type MediaUploadedEvent struct {
	CaptureID string `json:"capture_id" doc:"Capture identifier"`
	MediaID   string `json:"media_id" doc:"Media identifier assigned by the backend"`
	AlbumID   string `json:"album_id" doc:"Target album"`
	FileType  string `json:"file_type" example:"image" doc:"image or video"`
	URL       string `json:"url" doc:"Media URL"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MediaUploadedEvent.
func (e MediaUploadedEvent) Type() uint32 { return TypeMediaUploaded }

// UploadFailedEvent is published when a capture could not be uploaded.
type UploadFailedEvent struct {
	CaptureID string `json:"capture_id" doc:"Capture identifier"`
	AlbumID   string `json:"album_id" doc:"Target album"`
	Error     string `json:"error" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for UploadFailedEvent.
func (e UploadFailedEvent) Type() uint32 { return TypeUploadFailed }

// CaptureMetricsEvent carries periodic capture counters.
type CaptureMetricsEvent struct {
	EventType       string `json:"type"`
	State           string `json:"state"`
	Photos          string `json:"photos"`
	Videos          string `json:"videos"`
	Bytes           string `json:"bytes"`
	RecordingChunks string `json:"recording_chunks"`
	UploadsOK       string `json:"uploads_ok"`
	UploadsFailed   string `json:"uploads_failed"`
}

// Type returns the event type identifier for CaptureMetricsEvent.
func (e CaptureMetricsEvent) Type() uint32 { return TypeCaptureMetrics }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
