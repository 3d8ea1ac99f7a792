package album

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/metrics"
)

// ErrNoAlbum is returned when a capture has no album to go to.
var ErrNoAlbum = errors.New("no current album")

// EventPublisher publishes upload events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// UploaderOptions configures an Uploader.
type UploaderOptions struct {
	// TargetAlbum is used, and created if needed, when no album is current.
	TargetAlbum string
	QueueSize   int
	Timeout     time.Duration
	Publisher   EventPublisher
}

// Uploader stores capture results in the current album. Results are queued
// so the controller callbacks never wait on the network.
type Uploader struct {
	lib    *Library
	opts   UploaderOptions
	logger *slog.Logger

	mu      sync.Mutex
	queue   chan capture.Result
	closed  bool
	started bool
	wg      sync.WaitGroup
	albumMu sync.Mutex
}

// NewUploader creates an uploader for lib.
func NewUploader(lib *Library, opts UploaderOptions) *Uploader {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Uploader{
		lib:    lib,
		opts:   opts,
		logger: logging.GetLogger("album"),
		queue:  make(chan capture.Result, opts.QueueSize),
	}
}

// Start runs the upload worker until Stop.
func (u *Uploader) Start(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started || u.closed {
		return
	}
	u.started = true
	u.wg.Add(1)
	go u.run(ctx)
}

// Stop stops accepting results and waits for queued uploads to finish.
func (u *Uploader) Stop() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	close(u.queue)
	u.mu.Unlock()
	u.wg.Wait()
}

// OnPhotoCaptured queues a photo for upload.
func (u *Uploader) OnPhotoCaptured(r capture.Result) {
	u.enqueue(r)
}

// OnVideoCaptured queues a video for upload. Empty recordings are skipped.
func (u *Uploader) OnVideoCaptured(r capture.Result) {
	if len(r.Data) == 0 {
		u.logger.Debug("Skipping upload of empty recording", "capture_id", r.ID)
		return
	}
	u.enqueue(r)
}

func (u *Uploader) enqueue(r capture.Result) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		u.fail(r, "", errors.New("uploader stopped"))
		return
	}
	select {
	case u.queue <- r:
	default:
		u.fail(r, "", errors.New("upload queue full"))
	}
}

func (u *Uploader) run(ctx context.Context) {
	defer u.wg.Done()
	for r := range u.queue {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.opts.Timeout)
		_, _ = u.Upload(uctx, r)
		cancel()
	}
}

// Upload stores one result synchronously.
func (u *Uploader) Upload(ctx context.Context, r capture.Result) (Media, error) {
	start := time.Now()

	a, err := u.resolveAlbum(ctx)
	if err != nil {
		u.fail(r, "", err)
		metrics.ObserveUpload(false, time.Since(start))
		return Media{}, err
	}

	m, err := u.lib.Upload(ctx, Upload{
		AlbumID:  a.ID,
		Type:     fileType(r.Kind),
		FileName: FileName(r),
		MimeType: r.MimeType,
		Data:     r.Data,
	})
	metrics.ObserveUpload(err == nil, time.Since(start))
	if err != nil {
		u.fail(r, a.ID, err)
		return Media{}, err
	}

	u.logger.Info("Capture uploaded", "capture_id", r.ID, "media_id", m.ID, "album_id", a.ID, "size", len(r.Data))
	if u.opts.Publisher != nil {
		u.opts.Publisher.Publish(events.MediaUploadedEvent{
			CaptureID: r.ID,
			MediaID:   m.ID,
			AlbumID:   a.ID,
			FileType:  string(m.FileType),
			URL:       m.URL,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return m, nil
}

// resolveAlbum returns the current album. Without one it falls back to the
// target album, created when missing, or else to the first album.
func (u *Uploader) resolveAlbum(ctx context.Context) (Album, error) {
	if a, ok := u.lib.Current(); ok {
		return a, nil
	}

	u.albumMu.Lock()
	defer u.albumMu.Unlock()

	if a, ok := u.lib.Current(); ok {
		return a, nil
	}
	if u.opts.TargetAlbum == "" {
		return u.firstAlbum(ctx)
	}
	a, ok := u.lib.FindByName(u.opts.TargetAlbum)
	if !ok {
		if _, err := u.lib.FetchAlbums(ctx); err != nil {
			return Album{}, err
		}
		a, ok = u.lib.FindByName(u.opts.TargetAlbum)
	}
	if !ok {
		created, err := u.lib.CreateAlbum(ctx, u.opts.TargetAlbum)
		if err != nil {
			return Album{}, err
		}
		u.logger.Info("Created target album", "album_id", created.ID, "name", created.Name)
		a = created
	}
	if err := u.lib.SetCurrent(a.ID); err != nil {
		return Album{}, err
	}
	return a, nil
}

func (u *Uploader) fail(r capture.Result, albumID string, err error) {
	u.logger.Warn("Capture upload failed", "capture_id", r.ID, "kind", r.Kind, "error", err)
	if u.opts.Publisher != nil {
		u.opts.Publisher.Publish(events.UploadFailedEvent{
			CaptureID: r.ID,
			AlbumID:   albumID,
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

func fileType(k capture.Kind) FileType {
	if k == capture.KindVideo {
		return FileTypeVideo
	}
	return FileTypeImage
}

// FileName names an uploaded capture after its kind and capture time.
func FileName(r capture.Result) string {
	return fmt.Sprintf("%s-%s%s", r.Kind, r.CapturedAt.UTC().Format("20060102-150405.000"), r.Extension())
}

func (u *Uploader) firstAlbum(ctx context.Context) (Album, error) {
	albums := u.lib.Albums()
	if len(albums) == 0 {
		fetched, err := u.lib.FetchAlbums(ctx)
		if err != nil {
			return Album{}, err
		}
		albums = fetched
	}
	if len(albums) == 0 {
		return Album{}, ErrNoAlbum
	}
	if err := u.lib.SetCurrent(albums[0].ID); err != nil {
		return Album{}, err
	}
	u.logger.Info("No album selected, using the first", "album_id", albums[0].ID, "name", albums[0].Name)
	return albums[0], nil
}
