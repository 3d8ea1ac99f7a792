package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Capture models
type CaptureStatusData struct {
	State          string     `json:"state" example:"ready" doc:"Controller state: idle, ready, recording, error"`
	DeviceID       string     `json:"device_id,omitempty" doc:"Device the controller is bound to"`
	Generation     uint64     `json:"generation" doc:"Acquisition generation"`
	ErrorCode      string     `json:"error_code,omitempty" example:"device_unavailable" doc:"Last error code"`
	ErrorMessage   string     `json:"error_message,omitempty" doc:"User facing error message"`
	Width          int        `json:"width,omitempty" example:"1280" doc:"Delivered frame width"`
	Height         int        `json:"height,omitempty" example:"720" doc:"Delivered frame height"`
	HasAudio       bool       `json:"has_audio" doc:"Whether the stream carries audio"`
	RecordingSince *time.Time `json:"recording_since,omitempty" doc:"Start of the active recording"`
	RecordingMime  string     `json:"recording_mime,omitempty" example:"video/webm;codecs=vp9" doc:"Container of the active recording"`
	Chunks         int        `json:"chunks,omitempty" doc:"Chunks buffered by the active recording"`
}

type CaptureStatusResponse struct {
	Body CaptureStatusData
}

type AcquireRequest struct {
	Body struct {
		DeviceID string `json:"device_id,omitempty" doc:"Device to acquire, the selected device when empty"`
	}
}

// CaptureResultData describes a photo or video handed to the album uploader.
type CaptureResultData struct {
	ID          string    `json:"id" doc:"Capture identifier"`
	Kind        string    `json:"kind" example:"photo" doc:"photo or video"`
	DeviceID    string    `json:"device_id" doc:"Source device"`
	MimeType    string    `json:"mime_type" example:"image/jpeg" doc:"MIME type"`
	Size        int       `json:"size" doc:"Encoded size in bytes"`
	Width       int       `json:"width,omitempty" doc:"Frame width"`
	Height      int       `json:"height,omitempty" doc:"Frame height"`
	DurationMs  int64     `json:"duration_ms,omitempty" doc:"Recording duration"`
	Chunks      int       `json:"chunks,omitempty" doc:"Chunks concatenated into the recording"`
	Interrupted bool      `json:"interrupted,omitempty" doc:"Finalized because the stream was released"`
	CapturedAt  time.Time `json:"captured_at" doc:"Capture timestamp"`
	ImageData   string    `json:"image_data,omitempty" doc:"Base64-encoded JPEG, photos only"`
}

type CaptureResultResponse struct {
	Body CaptureResultData
}

// Album models
type UserData struct {
	ID    string `json:"id" doc:"User identifier"`
	Name  string `json:"name" doc:"Display name"`
	Email string `json:"email" format:"email" doc:"Email address"`
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email" format:"email" doc:"Account email"`
		Password string `json:"password" minLength:"1" doc:"Account password"`
	}
}

type RegisterRequest struct {
	Body struct {
		Name     string `json:"name" minLength:"1" doc:"Display name"`
		Email    string `json:"email" format:"email" doc:"Account email"`
		Password string `json:"password" minLength:"1" doc:"Account password"`
	}
}

type SessionData struct {
	Authenticated bool      `json:"authenticated" doc:"Whether the service holds a backend token"`
	User          *UserData `json:"user,omitempty" doc:"Signed in user"`
}

type SessionResponse struct {
	Body SessionData
}

type AlbumData struct {
	ID         string    `json:"id" doc:"Album identifier"`
	Name       string    `json:"name" example:"Holidays" doc:"Album name"`
	OwnerID    string    `json:"owner_id,omitempty" doc:"Owner"`
	MediaCount int       `json:"media_count" doc:"Number of media items"`
	Thumbnail  string    `json:"thumbnail,omitempty" doc:"Thumbnail URL"`
	Current    bool      `json:"current" doc:"Whether captures are uploaded into this album"`
	CreatedAt  time.Time `json:"created_at,omitempty" doc:"Creation time"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" doc:"Last update"`
}

type AlbumListData struct {
	Albums []AlbumData `json:"albums" doc:"Albums of the signed in user"`
	Count  int         `json:"count" doc:"Number of albums"`
}

type AlbumListResponse struct {
	Body AlbumListData
}

type AlbumResponse struct {
	Body AlbumData
}

type AlbumRequest struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"128" example:"Holidays" doc:"Album name"`
	}
}

type AlbumPathRequest struct {
	AlbumID string `path:"album_id" doc:"Album identifier"`
}

type RenameAlbumRequest struct {
	AlbumID string `path:"album_id" doc:"Album identifier"`
	Body    struct {
		Name string `json:"name" minLength:"1" maxLength:"128" doc:"New album name"`
	}
}

type MediaData struct {
	ID        string    `json:"id" doc:"Media identifier"`
	FileName  string    `json:"file_name" doc:"Original file name"`
	FileType  string    `json:"file_type" example:"image" doc:"image or video"`
	AlbumID   string    `json:"album_id" doc:"Album the media belongs to"`
	URL       string    `json:"url" doc:"Media URL"`
	Thumbnail string    `json:"thumbnail,omitempty" doc:"Thumbnail URL"`
	CreatedAt time.Time `json:"created_at,omitempty" doc:"Upload time"`
}

type MediaListData struct {
	AlbumID string      `json:"album_id" doc:"Album identifier"`
	Media   []MediaData `json:"media" doc:"Media items"`
	Count   int         `json:"count" doc:"Number of media items"`
}

type MediaListResponse struct {
	Body MediaListData
}

type MediaPathRequest struct {
	MediaID string `path:"media_id" doc:"Media identifier"`
}

// MessageResponse is returned by operations without a payload.
type MessageResponse struct {
	Body struct {
		Message string `json:"message" doc:"Operation result message"`
	}
}

type UserResponse struct {
	Body UserData
}
