package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/camalbum/internal/album"
	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/devices"
	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/version"
)

const authRealm = `Basic realm="camalbum API"`

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string

	Controller *capture.Controller
	Registry   *devices.Registry
	// Session and Library are optional; album routes answer 503 without them.
	Session  *album.Session
	Library  *album.Library
	EventBus *events.Bus

	// PreviewQuality is the JPEG quality of preview frames.
	PreviewQuality int
	// PreviewFPS caps the preview frame rate.
	PreviewFPS int

	// CORSOrigins lists the browser origins allowed to call the API and
	// open the preview websocket. Empty allows any origin.
	CORSOrigins []string

	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// Server is the huma API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	controller *capture.Controller
	registry   *devices.Registry
	session    *album.Session
	library    *album.Library
	eventBus   *events.Bus
	cors       *corsPolicy
	logger     *slog.Logger

	previewFPS atomic.Int32
	previewQ   atomic.Int32
}

// credentialsFrom extracts "user:password" from the Authorization header or,
// for EventSource and WebSocket clients that cannot set headers, from the
// base64 encoded auth query parameter.
func credentialsFrom(header, query string) (string, string) {
	encoded := query
	if header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", "Invalid authentication type"
		}
		encoded = header[len(prefix):]
	}
	if encoded == "" {
		return "", "Authentication required"
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "Invalid credentials format"
	}
	return string(decoded), ""
}

func (s *Server) checkCredentials(header, query string) (bool, string) {
	credentials, msg := credentialsFrom(header, query)
	if msg != "" {
		return false, msg
	}
	user, pass, ok := strings.Cut(credentials, ":")
	if !ok {
		return false, "Invalid credentials format"
	}
	if user != s.options.AuthUsername || pass != s.options.AuthPassword {
		return false, "Invalid credentials"
	}
	return true, ""
}

func (s *Server) authEnabled() bool {
	return s.options.AuthUsername != "" && s.options.AuthPassword != ""
}

// basicAuthMiddleware enforces HTTP basic authentication on operations that
// declare a security requirement.
func (s *Server) basicAuthMiddleware(ctx huma.Context, next func(huma.Context)) {
	op := ctx.Operation()
	if op != nil && len(op.Security) == 0 {
		next(ctx)
		return
	}

	if ok, msg := s.checkCredentials(ctx.Header("Authorization"), ctx.Query("auth")); !ok {
		ctx.SetHeader("WWW-Authenticate", authRealm)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg)
		return
	}
	next(ctx)
}

// requireAuth guards handlers mounted on the mux directly.
func (s *Server) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	if !s.authEnabled() {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if ok, msg := s.checkCredentials(r.Header.Get("Authorization"), r.URL.Query().Get("auth")); !ok {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, msg, http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

// NewServer creates the API server using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := newCORSPolicy(opts.CORSOrigins)
	mux.HandleFunc("OPTIONS /", cors.preflight)

	config := huma.DefaultConfig("camalbum API", version.String())
	config.Info.Description = "Camera capture service that stores photos and recordings in remote albums"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:        api,
		mux:        mux,
		options:    opts,
		controller: opts.Controller,
		registry:   opts.Registry,
		session:    opts.Session,
		library:    opts.Library,
		eventBus:   eventBus,
		cors:       cors,
		logger:     logging.GetLogger("api"),
	}
	server.SetPreview(opts.PreviewFPS, opts.PreviewQuality)

	// CORS first, then request logging, then auth
	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(HTTPLoggingMiddleware)
	if server.authEnabled() {
		api.UseMiddleware(server.basicAuthMiddleware)
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	// No bundled frontend; the root points at the API docs.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusFound)
	})

	server.registerRoutes()
	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting camalbum API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down. Long lived preview and SSE connections are
// closed once ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   v.Version,
				GitCommit: v.GitCommit,
				BuildDate: v.BuildDate,
				GoVersion: v.GoVersion,
				Platform:  v.Platform,
			},
		}, nil
	})

	s.registerDeviceRoutes()
	s.registerCaptureRoutes()
	s.registerPreviewRoutes()
	s.registerAuthRoutes()
	s.registerAlbumRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
