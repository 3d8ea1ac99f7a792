package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/media"
)

// registerCaptureRoutes registers the capture controller endpoints.
func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture-status",
		Method:      http.MethodGet,
		Path:        "/api/capture",
		Summary:     "Capture Status",
		Description: "Current state of the capture controller",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		return &models.CaptureStatusResponse{Body: statusData(s.controller.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "acquire-camera",
		Method:      http.MethodPost,
		Path:        "/api/capture/acquire",
		Summary:     "Acquire Camera",
		Description: "Open a camera, releasing the one held before. Failures are reported in the returned state.",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *models.AcquireRequest) (*models.CaptureStatusResponse, error) {
		deviceID := input.Body.DeviceID
		if deviceID == "" {
			sel, ok := s.registry.Selected()
			if !ok {
				return nil, huma.Error409Conflict("No device selected")
			}
			deviceID = sel.ID
		} else if _, ok := s.registry.Get(deviceID); !ok {
			return nil, huma.Error404NotFound("Device not found")
		}

		// The stream outlives the request.
		st := s.controller.Acquire(context.WithoutCancel(ctx), deviceID)
		// A superseded acquisition reports the newer request; selecting its
		// device then would pull the controller back to a stale camera.
		if st.DeviceID == deviceID && st.State != capture.StateIdle {
			_ = s.registry.Select(deviceID)
		}
		return &models.CaptureStatusResponse{Body: statusData(st)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-photo",
		Method:      http.MethodPost,
		Path:        "/api/capture/photo",
		Summary:     "Capture Photo",
		Description: "Encode the current frame as JPEG and queue it for upload",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.CaptureResultResponse, error) {
		r, err := s.controller.CapturePhoto(ctx)
		if err != nil {
			return nil, captureError("Failed to capture photo", err)
		}
		data := resultData(r)
		data.ImageData = base64.StdEncoding.EncodeToString(r.Data)
		return &models.CaptureResultResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/api/capture/recording",
		Summary:     "Start Recording",
		Description: "Begin recording the current stream",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		if err := s.controller.StartRecording(ctx); err != nil {
			return nil, captureError("Failed to start recording", err)
		}
		return &models.CaptureStatusResponse{Body: statusData(s.controller.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodDelete,
		Path:        "/api/capture/recording",
		Summary:     "Stop Recording",
		Description: "Finish the recording and queue the video for upload",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, _ *struct{}) (*models.CaptureResultResponse, error) {
		r, err := s.controller.StopRecording(context.WithoutCancel(ctx))
		if err != nil {
			return nil, captureError("Failed to stop recording", err)
		}
		return &models.CaptureResultResponse{Body: resultData(r)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "dispose-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/dispose",
		Summary:     "Release Camera",
		Description: "Release the camera from any state",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		s.controller.Dispose()
		return &models.CaptureStatusResponse{Body: statusData(s.controller.Status())}, nil
	})
}

func captureError(msg string, err error) error {
	if errors.Is(err, capture.ErrInvalidState) {
		return huma.Error409Conflict(msg+": "+err.Error(), err)
	}
	var me *media.Error
	if errors.As(err, &me) {
		switch me.Code {
		case media.CodePermissionDenied:
			return huma.Error403Forbidden(media.UserMessage(err), err)
		case media.CodeDeviceUnavailable:
			return huma.Error503ServiceUnavailable(media.UserMessage(err), err)
		case media.CodeUnsupportedConstraint:
			return huma.Error422UnprocessableEntity(media.UserMessage(err), err)
		}
	}
	return huma.Error500InternalServerError(msg, err)
}

func statusData(st capture.Status) models.CaptureStatusData {
	data := models.CaptureStatusData{
		State:         string(st.State),
		DeviceID:      st.DeviceID,
		Generation:    st.Generation,
		ErrorCode:     st.ErrorCode,
		ErrorMessage:  st.ErrorMessage,
		Width:         st.Width,
		Height:        st.Height,
		HasAudio:      st.HasAudio,
		RecordingMime: st.RecordingMime,
		Chunks:        st.Chunks,
	}
	if !st.RecordingSince.IsZero() {
		since := st.RecordingSince
		data.RecordingSince = &since
	}
	return data
}

func resultData(r capture.Result) models.CaptureResultData {
	return models.CaptureResultData{
		ID:          r.ID,
		Kind:        string(r.Kind),
		DeviceID:    r.DeviceID,
		MimeType:    r.MimeType,
		Size:        len(r.Data),
		Width:       r.Width,
		Height:      r.Height,
		DurationMs:  r.Duration.Milliseconds(),
		Chunks:      r.Chunks,
		Interrupted: r.Interrupted,
		CapturedAt:  r.CapturedAt,
	}
}
