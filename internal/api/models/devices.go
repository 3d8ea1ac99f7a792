package models

// DeviceInfo represents a video input with snake_case fields
type DeviceInfo struct {
	DeviceID     string   `json:"device_id" example:"4b1e5c9a-camera" doc:"Device identifier used to acquire the camera"`
	Label        string   `json:"label" example:"HD Pro Webcam C920" doc:"Human readable label, Camera N when the backend reports none"`
	Kind         string   `json:"kind" example:"videoinput" doc:"Device kind"`
	DevicePath   string   `json:"device_path,omitempty" example:"/dev/video0" doc:"V4L2 node, when known"`
	StableID     string   `json:"stable_id,omitempty" example:"usb-046d_HD_Pro_Webcam_C920-video-index0" doc:"Stable V4L2 identifier"`
	Driver       string   `json:"driver,omitempty" example:"uvcvideo" doc:"Kernel driver"`
	Capabilities []string `json:"capabilities,omitempty" example:"[\"Video Capture\", \"Streaming I/O\"]" doc:"Device capabilities"`
	Selected     bool     `json:"selected" doc:"Whether this is the current device"`
}

// FormatInfo represents a pixel format and the frame sizes it supports
type FormatInfo struct {
	FormatName   string       `json:"format_name" example:"mjpeg" doc:"Short format name"`
	OriginalName string       `json:"original_name" example:"Motion-JPEG" doc:"Driver format description"`
	Emulated     bool         `json:"emulated" example:"false" doc:"Whether format is emulated"`
	Resolutions  []Resolution `json:"resolutions" doc:"Supported frame sizes"`
}

// Resolution represents a frame size and its frame rates
type Resolution struct {
	Width  uint32    `json:"width" example:"1920" doc:"Video width in pixels"`
	Height uint32    `json:"height" example:"1080" doc:"Video height in pixels"`
	FPS    []float64 `json:"fps,omitempty" example:"[30, 15]" doc:"Frames per second"`
}

// Device API response models
type DeviceData struct {
	Devices  []DeviceInfo `json:"devices" doc:"List of available video inputs"`
	Count    int          `json:"count" example:"2" doc:"Number of devices found"`
	Selected string       `json:"selected,omitempty" doc:"Current device id"`
}

type DeviceResponse struct {
	Body DeviceData
}

type DeviceFormatsData struct {
	DeviceID string       `json:"device_id" doc:"Device identifier"`
	Formats  []FormatInfo `json:"formats" doc:"Supported video formats"`
}

type DeviceFormatsResponse struct {
	Body DeviceFormatsData
}

type SelectDeviceRequest struct {
	Body struct {
		DeviceID string `json:"device_id" minLength:"1" doc:"Device to make current"`
	}
}

type DeviceFormatsRequest struct {
	DeviceID string `path:"device_id" doc:"Device identifier"`
}
