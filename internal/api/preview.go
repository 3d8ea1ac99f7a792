package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smazurov/camalbum/internal/media"
)

const previewWriteWait = 5 * time.Second

func (s *Server) previewUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.cors.checkOrigin,
	}
}

// registerPreviewRoutes mounts the live preview endpoints. They stream
// binary frames, so they live on the mux rather than in the OpenAPI schema.
func (s *Server) registerPreviewRoutes() {
	s.mux.HandleFunc("GET /api/capture/preview.mjpeg", s.requireAuth(s.handlePreviewMJPEG))
	s.mux.HandleFunc("GET /api/capture/preview/ws", s.requireAuth(s.handlePreviewWS))
}

// SetPreview changes the preview frame rate and JPEG quality for new and
// running preview clients. Zero or out of range values select the defaults.
func (s *Server) SetPreview(fps, quality int) {
	s.previewFPS.Store(int32(fps))
	s.previewQ.Store(int32(quality))
}

func (s *Server) previewInterval() time.Duration {
	fps := s.previewFPS.Load()
	if fps <= 0 {
		fps = 15
	}
	return time.Second / time.Duration(fps)
}

func (s *Server) previewQuality() int {
	if q := int(s.previewQ.Load()); q > 0 && q <= 100 {
		return q
	}
	return 70
}

// pumpPreview encodes frames of whatever stream the controller currently
// holds and passes them to send until ctx ends or send fails. While the
// controller holds no stream it waits; after a device switch it follows the
// new stream.
func (s *Server) pumpPreview(ctx context.Context, send func([]byte) error) error {
	interval := s.previewInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		stream media.Stream
		reader media.FrameReader
	)
	drop := func() {
		if c, ok := reader.(io.Closer); ok {
			_ = c.Close()
		}
		stream, reader = nil, nil
	}
	defer drop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if next := s.previewInterval(); next != interval {
			interval = next
			ticker.Reset(interval)
		}

		current, err := s.controller.Preview()
		if err != nil {
			drop()
			continue
		}
		if current != stream {
			drop()
			if reader, err = current.NewFrameReader(); err != nil {
				s.logger.Debug("Preview reader unavailable", "error", err)
				reader = nil
				continue
			}
			stream = current
		}

		img, release, err := reader.Read()
		if err != nil {
			drop()
			continue
		}
		data, err := media.EncodeJPEG(img, s.previewQuality())
		if release != nil {
			release()
		}
		if err != nil {
			continue
		}
		if err := send(data); err != nil {
			return err
		}
	}
}

func (s *Server) handlePreviewMJPEG(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Debug("MJPEG preview client connected", "remote_addr", r.RemoteAddr)
	err := s.pumpPreview(r.Context(), func(frame []byte) error {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {media.MimeJPEG},
			"Content-Length": {strconv.Itoa(len(frame))},
		})
		if err != nil {
			return err
		}
		if _, err := part.Write(frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("MJPEG preview ended", "remote_addr", r.RemoteAddr, "error", err)
	}
}

func (s *Server) handlePreviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.previewUpgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Preview websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Clients only send control frames; reading notices when they leave.
	go func() {
		defer cancel()
		conn.SetReadLimit(1024)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("Websocket preview client connected", "remote_addr", r.RemoteAddr)
	err = s.pumpPreview(ctx, func(frame []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(previewWriteWait))
		return conn.WriteMessage(websocket.BinaryMessage, frame)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("Websocket preview ended", "remote_addr", r.RemoteAddr, "error", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(previewWriteWait))
}
