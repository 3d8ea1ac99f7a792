package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camalbum/internal/album"
	"github.com/smazurov/camalbum/internal/api/models"
)

var errAlbumsDisabled = huma.Error503ServiceUnavailable("Album backend not configured")

// registerAuthRoutes registers the album backend sign in endpoints.
func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/auth/session",
		Summary:     "Album Session",
		Description: "Whether the service is signed in to the album backend",
		Tags:        []string{"auth"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if s.session == nil {
			return nil, errAlbumsDisabled
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "Sign In",
		Description: "Sign in to the album backend. Captures are uploaded with this account.",
		Tags:        []string{"auth"},
		Security:    withAuth(),
		Errors:      []int{401, 403, 502, 503},
	}, func(ctx context.Context, input *models.LoginRequest) (*models.SessionResponse, error) {
		if s.session == nil {
			return nil, errAlbumsDisabled
		}
		if _, err := s.session.Login(ctx, input.Body.Email, input.Body.Password); err != nil {
			if album.IsStatus(err, http.StatusUnauthorized) {
				return nil, huma.Error403Forbidden("Invalid album backend credentials", err)
			}
			return nil, albumError("Failed to sign in", err)
		}
		if s.library != nil {
			if _, err := s.library.FetchAlbums(ctx); err != nil {
				s.logger.Warn("Failed to load albums after sign in", "error", err)
			}
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/auth/register",
		Summary:       "Register",
		Description:   "Create an album backend account. Does not sign in.",
		Tags:          []string{"auth"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 409, 502, 503},
	}, func(ctx context.Context, input *models.RegisterRequest) (*models.UserResponse, error) {
		if s.session == nil {
			return nil, errAlbumsDisabled
		}
		u, err := s.session.Register(ctx, input.Body.Name, input.Body.Email, input.Body.Password)
		if err != nil {
			if album.IsStatus(err, http.StatusConflict) {
				return nil, huma.Error409Conflict("Account already exists", err)
			}
			return nil, albumError("Failed to register", err)
		}
		return &models.UserResponse{Body: userData(u)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/auth/logout",
		Summary:     "Sign Out",
		Description: "Forget the album backend token",
		Tags:        []string{"auth"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if s.session == nil {
			return nil, errAlbumsDisabled
		}
		s.session.Logout()
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})
}

// registerAlbumRoutes registers the album and media proxy endpoints.
func (s *Server) registerAlbumRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-albums",
		Method:      http.MethodGet,
		Path:        "/api/albums",
		Summary:     "List Albums",
		Description: "Albums of the signed in user",
		Tags:        []string{"albums"},
		Security:    withAuth(),
		Errors:      []int{401, 412, 502, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.AlbumListResponse, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		albums, err := s.library.FetchAlbums(ctx)
		if err != nil {
			return nil, albumError("Failed to list albums", err)
		}
		data := models.AlbumListData{Albums: make([]models.AlbumData, 0, len(albums)), Count: len(albums)}
		for _, a := range albums {
			data.Albums = append(data.Albums, s.albumData(a))
		}
		return &models.AlbumListResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-album",
		Method:        http.MethodPost,
		Path:          "/api/albums",
		Summary:       "Create Album",
		Tags:          []string{"albums"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 412, 502, 503},
	}, func(ctx context.Context, input *models.AlbumRequest) (*models.AlbumResponse, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		a, err := s.library.CreateAlbum(ctx, input.Body.Name)
		if err != nil {
			return nil, albumError("Failed to create album", err)
		}
		return &models.AlbumResponse{Body: s.albumData(a)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "rename-album",
		Method:      http.MethodPut,
		Path:        "/api/albums/{album_id}",
		Summary:     "Rename Album",
		Tags:        []string{"albums"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 412, 502, 503},
	}, func(ctx context.Context, input *models.RenameAlbumRequest) (*models.AlbumResponse, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		if err := s.library.RenameAlbum(ctx, input.AlbumID, input.Body.Name); err != nil {
			return nil, albumError("Failed to rename album", err)
		}
		a, ok := s.library.Album(input.AlbumID)
		if !ok {
			a = album.Album{ID: input.AlbumID, Name: input.Body.Name}
		}
		return &models.AlbumResponse{Body: s.albumData(a)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-album",
		Method:        http.MethodDelete,
		Path:          "/api/albums/{album_id}",
		Summary:       "Delete Album",
		Tags:          []string{"albums"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 412, 502, 503},
	}, func(ctx context.Context, input *models.AlbumPathRequest) (*struct{}, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		if err := s.library.DeleteAlbum(ctx, input.AlbumID); err != nil {
			return nil, albumError("Failed to delete album", err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-current-album",
		Method:      http.MethodPost,
		Path:        "/api/albums/{album_id}/current",
		Summary:     "Set Current Album",
		Description: "Upload further captures into this album",
		Tags:        []string{"albums"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 503},
	}, func(_ context.Context, input *models.AlbumPathRequest) (*models.AlbumResponse, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		if err := s.library.SetCurrent(input.AlbumID); err != nil {
			return nil, albumError("Failed to set current album", err)
		}
		a, _ := s.library.Album(input.AlbumID)
		return &models.AlbumResponse{Body: s.albumData(a)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-album-media",
		Method:      http.MethodGet,
		Path:        "/api/albums/{album_id}/media",
		Summary:     "List Media",
		Tags:        []string{"albums"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 412, 502, 503},
	}, func(ctx context.Context, input *models.AlbumPathRequest) (*models.MediaListResponse, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		items, err := s.library.FetchMedia(ctx, input.AlbumID)
		if err != nil {
			return nil, albumError("Failed to list media", err)
		}
		data := models.MediaListData{AlbumID: input.AlbumID, Media: make([]models.MediaData, 0, len(items)), Count: len(items)}
		for _, m := range items {
			data.Media = append(data.Media, mediaData(m))
		}
		return &models.MediaListResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-media",
		Method:        http.MethodDelete,
		Path:          "/api/media/{media_id}",
		Summary:       "Delete Media",
		Tags:          []string{"albums"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 412, 502, 503},
	}, func(ctx context.Context, input *models.MediaPathRequest) (*struct{}, error) {
		if s.library == nil {
			return nil, errAlbumsDisabled
		}
		if err := s.library.DeleteMedia(ctx, input.MediaID); err != nil {
			return nil, albumError("Failed to delete media", err)
		}
		return nil, nil
	})
}

// albumError maps album client failures onto API errors.
func albumError(msg string, err error) error {
	if errors.Is(err, album.ErrNotAuthenticated) {
		return huma.Error412PreconditionFailed("Not signed in to the album backend", err)
	}
	if errors.Is(err, album.ErrUnknownAlbum) {
		return huma.Error404NotFound("Album not found", err)
	}
	var apiErr *album.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return huma.Error404NotFound(apiErr.Message, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return huma.Error422UnprocessableEntity(apiErr.Message, err)
		case http.StatusUnauthorized:
			return huma.Error412PreconditionFailed("Album backend rejected the token", err)
		}
	}
	return huma.Error502BadGateway(msg, err)
}

func (s *Server) sessionData() models.SessionData {
	data := models.SessionData{Authenticated: s.session.Authenticated()}
	if u, ok := s.session.User(); ok {
		ud := userData(u)
		data.User = &ud
	}
	return data
}

func userData(u album.User) models.UserData {
	return models.UserData{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (s *Server) albumData(a album.Album) models.AlbumData {
	current := false
	if cur, ok := s.library.Current(); ok {
		current = cur.ID == a.ID
	}
	return models.AlbumData{
		ID:         a.ID,
		Name:       a.Name,
		OwnerID:    a.OwnerID,
		MediaCount: a.MediaCount,
		Thumbnail:  a.Thumbnail,
		Current:    current,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func mediaData(m album.Media) models.MediaData {
	return models.MediaData{
		ID:        m.ID,
		FileName:  m.FileName,
		FileType:  string(m.FileType),
		AlbumID:   m.AlbumID,
		URL:       m.URL,
		Thumbnail: m.Thumbnail,
		CreatedAt: m.CreatedAt,
	}
}
