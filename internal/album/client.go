// Package album talks to the remote album and media REST API and keeps the
// local view of the signed in user, their albums and media.
package album

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/metrics"
	"github.com/smazurov/camalbum/internal/version"
)

// ErrNotAuthenticated is returned for calls that need a token when none is set.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client is an HTTP client for the album backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.GetLogger("album"),
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPIRequest(method, "error")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.IncAPIRequest(method, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		c.logger.Debug("Album API request failed", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from a response,
// falling back to the raw text.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return AuthResponse{}, err
	}
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return AuthResponse{}, err
	}
	if resp.Token == "" {
		return AuthResponse{}, errors.New("login response carried no token")
	}
	return resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if err := req.Validate(); err != nil {
		return User{}, err
	}
	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ListAlbums returns the user's albums.
func (c *Client) ListAlbums(ctx context.Context) ([]Album, error) {
	var albums []Album
	if err := c.doJSON(ctx, http.MethodGet, "/albums", nil, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// CreateAlbum creates an album.
func (c *Client) CreateAlbum(ctx context.Context, req AlbumRequest) (Album, error) {
	if err := req.Validate(); err != nil {
		return Album{}, err
	}
	var album Album
	if err := c.doJSON(ctx, http.MethodPost, "/albums", req, &album); err != nil {
		return Album{}, err
	}
	return album, nil
}

// RenameAlbum renames an album.
func (c *Client) RenameAlbum(ctx context.Context, id string, req AlbumRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, "/albums/"+url.PathEscape(id), req, nil)
}

// DeleteAlbum deletes an album.
func (c *Client) DeleteAlbum(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/albums/"+url.PathEscape(id), nil, nil)
}

// ListMedia returns the media of an album.
func (c *Client) ListMedia(ctx context.Context, albumID string) ([]Media, error) {
	var items []Media
	if err := c.doJSON(ctx, http.MethodGet, "/albums/"+url.PathEscape(albumID)+"/media", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UploadMedia sends a multipart form with the file, albumId and type fields.
func (c *Client) UploadMedia(ctx context.Context, u Upload) (Media, error) {
	if err := u.Validate(); err != nil {
		return Media{}, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, u.FileName))
	mimeType := u.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return Media{}, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(u.Data); err != nil {
		return Media{}, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.WriteField("albumId", u.AlbumID); err != nil {
		return Media{}, err
	}
	if err := w.WriteField("type", string(u.Type)); err != nil {
		return Media{}, err
	}
	if err := w.Close(); err != nil {
		return Media{}, err
	}

	var m Media
	if err := c.do(ctx, http.MethodPost, "/media/upload", &buf, w.FormDataContentType(), &m); err != nil {
		return Media{}, err
	}
	return m, nil
}

// DeleteMedia deletes a media item.
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/media/"+url.PathEscape(id), nil, nil)
}
