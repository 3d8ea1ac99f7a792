package album

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBackend is an in-memory album API.
type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	token    string
	users    map[string]User
	albums   []Album
	media    []Media
	uploads  []fakeUpload
	nextID   int
	failNext int
}

type fakeUpload struct {
	AlbumID     string
	Type        string
	FileName    string
	ContentType string
	Data        []byte
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	b := &fakeBackend{
		t:     t,
		token: "token-1",
		users: map[string]User{"test@example.com": {ID: "1", Name: "Test User", Email: "test@example.com"}},
	}
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) id(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", prefix, b.nextID)
}

func (b *fakeBackend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		u, ok := b.users[req.Email]
		if !ok || req.Password != "password" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: b.token, User: u})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exists := b.users[req.Email]; exists {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "User already exists"})
			return
		}
		u := User{ID: b.id("user"), Name: req.Name, Email: req.Email}
		b.users[req.Email] = u
		writeJSON(w, http.StatusCreated, u)
	})

	mux.HandleFunc("GET /albums", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.albums)
	}))

	mux.HandleFunc("POST /albums", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var req AlbumRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		a := Album{ID: b.id("album"), Name: req.Name, OwnerID: "1", CreatedAt: time.Now().UTC()}
		b.albums = append(b.albums, a)
		writeJSON(w, http.StatusCreated, a)
	}))

	mux.HandleFunc("PUT /albums/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var req AlbumRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for i := range b.albums {
			if b.albums[i].ID == r.PathValue("id") {
				b.albums[i].Name = req.Name
				writeJSON(w, http.StatusOK, b.albums[i])
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "album not found"})
	}))

	mux.HandleFunc("DELETE /albums/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		for i := range b.albums {
			if b.albums[i].ID == r.PathValue("id") {
				b.albums = append(b.albums[:i], b.albums[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "album not found"})
	}))

	mux.HandleFunc("GET /albums/{id}/media", b.authed(func(w http.ResponseWriter, r *http.Request) {
		items := []Media{}
		for _, m := range b.media {
			if m.AlbumID == r.PathValue("id") {
				items = append(items, m)
			}
		}
		writeJSON(w, http.StatusOK, items)
	}))

	mux.HandleFunc("POST /media/upload", b.authed(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file missing"})
			return
		}
		data, _ := io.ReadAll(f)
		up := fakeUpload{
			AlbumID:     r.FormValue("albumId"),
			Type:        r.FormValue("type"),
			FileName:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		}
		b.uploads = append(b.uploads, up)
		m := Media{
			ID:       b.id("media"),
			FileName: up.FileName,
			FileType: FileType(up.Type),
			AlbumID:  up.AlbumID,
			URL:      "https://cdn.example.com/" + up.FileName,
		}
		b.media = append(b.media, m)
		writeJSON(w, http.StatusCreated, m)
	}))

	mux.HandleFunc("DELETE /media/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		for i := range b.media {
			if b.media[i].ID == r.PathValue("id") {
				b.media = append(b.media[:i], b.media[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	return mux
}

// authed checks the bearer token and serializes handlers.
func (b *fakeBackend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failNext > 0 {
			b.failNext--
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "backend unavailable"})
			return
		}
		if strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != b.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
			return
		}
		h(w, r)
	}
}

func (b *fakeBackend) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
