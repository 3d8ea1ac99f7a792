package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/devices"
)

// registerDeviceRoutes registers device enumeration and selection endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List video inputs and the currently selected one",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.DeviceResponse, error) {
		list, err := s.registry.Refresh(ctx)
		if err != nil {
			s.logger.Error("Failed to enumerate devices", "error", err)
			return nil, huma.Error500InternalServerError("Failed to enumerate devices", err)
		}
		return &models.DeviceResponse{Body: s.deviceData(list)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device-formats",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}/formats",
		Summary:     "Device Formats",
		Description: "Pixel formats, frame sizes and frame rates reported by the driver",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422},
	}, func(_ context.Context, input *models.DeviceFormatsRequest) (*models.DeviceFormatsResponse, error) {
		formats, err := s.registry.Formats(input.DeviceID)
		switch {
		case errors.Is(err, devices.ErrUnknownDevice):
			return nil, huma.Error404NotFound("Device not found")
		case err != nil:
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return &models.DeviceFormatsResponse{
			Body: models.DeviceFormatsData{DeviceID: input.DeviceID, Formats: formats},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "select-device",
		Method:      http.MethodPost,
		Path:        "/api/devices/select",
		Summary:     "Select Device",
		Description: "Make a device current. An acquired camera switches to it.",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.SelectDeviceRequest) (*models.DeviceResponse, error) {
		if err := s.registry.Select(input.Body.DeviceID); err != nil {
			return nil, huma.Error404NotFound("Device not found", err)
		}
		return &models.DeviceResponse{Body: s.deviceData(s.registry.List())}, nil
	})
}

func (s *Server) deviceData(list []devices.Device) models.DeviceData {
	data := models.DeviceData{Devices: make([]models.DeviceInfo, 0, len(list)), Count: len(list)}
	for _, d := range list {
		data.Devices = append(data.Devices, s.registry.ToAPI(d))
	}
	if sel, ok := s.registry.Selected(); ok {
		data.Selected = sel.ID
	}
	return data
}
