package album

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// FileType is the media kind stored by the backend.
type FileType string

// Media kinds.
const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// User is an account on the album backend.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Album groups media items.
type Album struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"ownerId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	MediaCount int       `json:"mediaCount,omitempty"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
}

// Media is one stored photo or video.
type Media struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	FileType  FileType  `json:"fileType"`
	AlbumID   string    `json:"albumId"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials are usable.
func (r LoginRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email %q", r.Email)
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration fields.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return LoginRequest{Email: r.Email, Password: r.Password}.Validate()
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// AlbumRequest is the body for creating or renaming an album.
type AlbumRequest struct {
	Name string `json:"name"`
}

// Validate checks the album name.
func (r AlbumRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("album name is required")
	}
	if len(name) > 128 {
		return errors.New("album name is longer than 128 characters")
	}
	return nil
}

// Upload is a file to store in an album.
type Upload struct {
	AlbumID  string
	Type     FileType
	FileName string
	MimeType string
	Data     []byte
}

// Validate checks the upload before it is sent.
func (u Upload) Validate() error {
	if u.AlbumID == "" {
		return errors.New("album id is required")
	}
	if u.Type != FileTypeImage && u.Type != FileTypeVideo {
		return fmt.Errorf("invalid media type %q", u.Type)
	}
	if u.FileName == "" {
		return errors.New("file name is required")
	}
	if len(u.Data) == 0 {
		return errors.New("file is empty")
	}
	return nil
}
