package events

import (
	"encoding/base64"
	"time"

	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/media"
)

// CaptureState builds the event for a controller status.
func CaptureState(st capture.Status) CaptureStateEvent {
	return CaptureStateEvent{
		State:        string(st.State),
		DeviceID:     st.DeviceID,
		Generation:   st.Generation,
		ErrorCode:    st.ErrorCode,
		ErrorMessage: st.ErrorMessage,
		Timestamp:    time.Now().Format(time.RFC3339),
	}
}

// PhotoCaptured builds the event for a photo. The image travels base64
// encoded so SSE clients can show it without a second request.
func PhotoCaptured(r capture.Result) PhotoCapturedEvent {
	return PhotoCapturedEvent{
		ID:        r.ID,
		DeviceID:  r.DeviceID,
		MimeType:  r.MimeType,
		Width:     r.Width,
		Height:    r.Height,
		Size:      len(r.Data),
		ImageData: base64.StdEncoding.EncodeToString(r.Data),
		Timestamp: r.CapturedAt.Format(time.RFC3339),
	}
}

// VideoCaptured builds the event for a finished recording.
func VideoCaptured(r capture.Result) VideoCapturedEvent {
	return VideoCapturedEvent{
		ID:          r.ID,
		DeviceID:    r.DeviceID,
		MimeType:    r.MimeType,
		Size:        len(r.Data),
		Chunks:      r.Chunks,
		DurationMs:  r.Duration.Milliseconds(),
		Interrupted: r.Interrupted,
		Timestamp:   r.CapturedAt.Format(time.RFC3339),
	}
}

// CaptureError builds the event for a failed acquisition or recording.
func CaptureError(deviceID string, err error) CaptureErrorEvent {
	ev := CaptureErrorEvent{
		DeviceID:  deviceID,
		Code:      media.ErrorCode(err),
		Message:   media.UserMessage(err),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}
