package album

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownAlbum is returned for an album id the library has not seen.
var ErrUnknownAlbum = errors.New("unknown album")

// Library caches albums and their media and tracks the current album.
type Library struct {
	client *Client

	mu      sync.RWMutex
	albums  []Album
	current string
	media   map[string][]Media
}

// NewLibrary creates an empty library.
func NewLibrary(client *Client) *Library {
	return &Library{client: client, media: make(map[string][]Media)}
}

func (l *Library) authorized() error {
	if l.client.Token() == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// FetchAlbums reloads the album list.
func (l *Library) FetchAlbums(ctx context.Context) ([]Album, error) {
	if err := l.authorized(); err != nil {
		return nil, err
	}
	albums, err := l.client.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch albums: %w", err)
	}

	l.mu.Lock()
	l.albums = albums
	if l.current != "" && l.indexLocked(l.current) < 0 {
		l.current = ""
	}
	l.mu.Unlock()
	return slices.Clone(albums), nil
}

// Refresh reloads albums and then the media of every album in parallel.
func (l *Library) Refresh(ctx context.Context) error {
	albums, err := l.FetchAlbums(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, a := range albums {
		g.Go(func() error {
			_, err := l.FetchMedia(gctx, a.ID)
			return err
		})
	}
	return g.Wait()
}

// Albums returns the cached albums.
func (l *Library) Albums() []Album {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.albums)
}

// Album returns a cached album.
func (l *Library) Album(id string) (Album, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.albums[i], true
	}
	return Album{}, false
}

// CreateAlbum creates an album and appends it to the cache.
func (l *Library) CreateAlbum(ctx context.Context, name string) (Album, error) {
	if err := l.authorized(); err != nil {
		return Album{}, err
	}
	a, err := l.client.CreateAlbum(ctx, AlbumRequest{Name: name})
	if err != nil {
		return Album{}, fmt.Errorf("create album: %w", err)
	}
	l.mu.Lock()
	l.albums = append(l.albums, a)
	l.mu.Unlock()
	return a, nil
}

// RenameAlbum renames an album in the backend and the cache.
func (l *Library) RenameAlbum(ctx context.Context, id, name string) error {
	if err := l.authorized(); err != nil {
		return err
	}
	if err := l.client.RenameAlbum(ctx, id, AlbumRequest{Name: name}); err != nil {
		return fmt.Errorf("rename album: %w", err)
	}
	l.mu.Lock()
	if i := l.indexLocked(id); i >= 0 {
		l.albums[i].Name = name
	}
	l.mu.Unlock()
	return nil
}

// DeleteAlbum deletes an album. Deleting the current album clears it.
func (l *Library) DeleteAlbum(ctx context.Context, id string) error {
	if err := l.authorized(); err != nil {
		return err
	}
	if err := l.client.DeleteAlbum(ctx, id); err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	l.mu.Lock()
	l.albums = slices.DeleteFunc(l.albums, func(a Album) bool { return a.ID == id })
	delete(l.media, id)
	if l.current == id {
		l.current = ""
	}
	l.mu.Unlock()
	return nil
}

// SetCurrent makes id the album captures are uploaded to. An empty id
// clears it.
func (l *Library) SetCurrent(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id != "" && l.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAlbum, id)
	}
	l.current = id
	return nil
}

// Current returns the current album.
func (l *Library) Current() (Album, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(l.current); i >= 0 {
		return l.albums[i], true
	}
	return Album{}, false
}

// FindByName returns the first cached album called name.
func (l *Library) FindByName(name string) (Album, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, a := range l.albums {
		if a.Name == name {
			return a, true
		}
	}
	return Album{}, false
}

// FetchMedia reloads the media of an album.
func (l *Library) FetchMedia(ctx context.Context, albumID string) ([]Media, error) {
	if err := l.authorized(); err != nil {
		return nil, err
	}
	items, err := l.client.ListMedia(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("fetch media for album %s: %w", albumID, err)
	}
	l.mu.Lock()
	l.media[albumID] = items
	l.mu.Unlock()
	return slices.Clone(items), nil
}

// Media returns the cached media of an album.
func (l *Library) Media(albumID string) []Media {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.media[albumID])
}

// Upload stores a file and appends the result to the album's cached media.
func (l *Library) Upload(ctx context.Context, u Upload) (Media, error) {
	if err := l.authorized(); err != nil {
		return Media{}, err
	}
	m, err := l.client.UploadMedia(ctx, u)
	if err != nil {
		return Media{}, fmt.Errorf("upload media: %w", err)
	}
	l.mu.Lock()
	l.media[u.AlbumID] = append(l.media[u.AlbumID], m)
	if i := l.indexLocked(u.AlbumID); i >= 0 {
		l.albums[i].MediaCount++
	}
	l.mu.Unlock()
	return m, nil
}

// DeleteMedia deletes a media item and drops it from the cache.
func (l *Library) DeleteMedia(ctx context.Context, id string) error {
	if err := l.authorized(); err != nil {
		return err
	}
	if err := l.client.DeleteMedia(ctx, id); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	l.mu.Lock()
	for albumID, items := range l.media {
		n := len(items)
		items = slices.DeleteFunc(items, func(m Media) bool { return m.ID == id })
		if len(items) != n {
			l.media[albumID] = items
			if i := l.indexLocked(albumID); i >= 0 && l.albums[i].MediaCount > 0 {
				l.albums[i].MediaCount--
			}
		}
	}
	l.mu.Unlock()
	return nil
}

func (l *Library) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(l.albums, func(a Album) bool { return a.ID == id })
}
