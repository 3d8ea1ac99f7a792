package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/camalbum/cmd"
	"github.com/smazurov/camalbum/internal/album"
	"github.com/smazurov/camalbum/internal/api"
	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/config"
	"github.com/smazurov/camalbum/internal/devices"
	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/led"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/metrics/exporters"
	"github.com/smazurov/camalbum/internal/systemd"
)

const defaultAlbumTimeout = 30 * time.Second

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port        string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigins string `help:"Comma separated browser origins allowed to call the API" default:"*" toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Capture settings
	CaptureSource           string `help:"Capture source (camera, testsrc)" default:"camera" toml:"capture.source" env:"CAPTURE_SOURCE"`
	CaptureWidth            int    `help:"Ideal capture width" default:"1280" toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureHeight           int    `help:"Ideal capture height" default:"720" toml:"capture.height" env:"CAPTURE_HEIGHT"`
	CaptureAudio            bool   `help:"Request an audio track" default:"false" toml:"capture.audio" env:"CAPTURE_AUDIO"`
	CaptureAudioDevice      string `help:"ALSA microphone for the webm recorder, empty picks the first" default:"" toml:"capture.audio_device" env:"CAPTURE_AUDIO_DEVICE"`
	CaptureJPEGQuality      int    `help:"Photo JPEG quality (1-100)" default:"95" toml:"capture.jpeg_quality" env:"CAPTURE_JPEG_QUALITY"`
	CaptureRecorder         string `help:"Recorder (mjpeg, webm)" default:"mjpeg" toml:"capture.recorder" env:"CAPTURE_RECORDER"`
	CaptureTimesliceMs      int    `help:"Recording chunk interval in milliseconds" default:"1000" toml:"capture.timeslice_ms" env:"CAPTURE_TIMESLICE_MS"`
	CaptureDisposeRecording string `help:"Recording on release (emit, discard)" default:"emit" toml:"capture.dispose_recording" env:"CAPTURE_DISPOSE_RECORDING"`
	CaptureAutoAcquire      bool   `help:"Acquire the selected camera at startup" default:"true" toml:"capture.auto_acquire" env:"CAPTURE_AUTO_ACQUIRE"`
	CaptureFfmpegPath       string `help:"ffmpeg executable for the webm recorder" default:"ffmpeg" toml:"capture.ffmpeg_path" env:"CAPTURE_FFMPEG_PATH"`
	CapturePreviewFPS       int    `help:"Preview frame rate" default:"15" toml:"capture.preview_fps" env:"CAPTURE_PREVIEW_FPS"`
	CapturePreviewQuality   int    `help:"Preview JPEG quality" default:"70" toml:"capture.preview_quality" env:"CAPTURE_PREVIEW_QUALITY"`

	// Album backend settings
	AlbumURL         string        `help:"Album backend base URL, empty disables uploads" default:"" toml:"album.api_url" env:"ALBUM_API_URL"`
	AlbumToken       string        `help:"Album backend bearer token" default:"" toml:"album.token" env:"ALBUM_TOKEN"`
	AlbumEmail       string        `help:"Album backend account email" default:"" toml:"album.email" env:"ALBUM_EMAIL"`
	AlbumPassword    string        `help:"Album backend account password" default:"" toml:"album.password" env:"ALBUM_PASSWORD"`
	AlbumTargetAlbum string        `help:"Album to upload into when none is current" default:"" toml:"album.target_album" env:"ALBUM_TARGET_ALBUM"`
	AlbumTimeout     time.Duration `help:"Album backend request timeout" default:"30s" toml:"album.timeout" env:"ALBUM_TIMEOUT"`

	// Device settings
	DevicesHotplug bool `help:"Refresh devices on hotplug events" default:"true" toml:"devices.hotplug" env:"DEVICES_HOTPLUG"`

	// Feature settings
	FeaturesLEDControl bool `help:"Show the capture state on a board LED" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL_ENABLED"`

	// Observability settings
	ObsPrometheusEnabled bool `help:"Enable Prometheus" default:"true" toml:"obs.prometheus_enabled" env:"OBS_PROMETHEUS_ENABLED"`
	ObsSSEEnabled        bool `help:"Publish capture metrics over SSE" default:"true" toml:"obs.sse_enabled" env:"OBS_SSE_ENABLED"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingDevices string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingMedia   string `help:"Media logging level" default:"info" toml:"logging.media" env:"LOGGING_MEDIA"`
	LoggingAlbum   string `help:"Album client logging level" default:"info" toml:"logging.album" env:"LOGGING_ALBUM"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingFfmpeg  string `help:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
}

func main() {
	var cli humacli.CLI

	// Create Huma CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically; flags set on the command line win
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture": opts.LoggingCapture,
				"devices": opts.LoggingDevices,
				"media":   opts.LoggingMedia,
				"album":   opts.LoggingAlbum,
				"api":     opts.LoggingAPI,
				"ffmpeg":  opts.LoggingFfmpeg,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEntryEvent(entry))
		})

		source, err := cmd.NewSource(opts.CaptureSource)
		if err != nil {
			logger.Error("Invalid capture source", "error", err)
			os.Exit(1)
		}
		mic := ""
		if opts.CaptureAudio && opts.CaptureRecorder == cmd.RecorderWebM {
			if mic, err = cmd.ResolveAudioInput(opts.CaptureAudioDevice); err != nil {
				logger.Warn("Recordings will have no ALSA audio", "error", err)
			} else {
				logger.Info("Recording audio from ALSA", "device", mic)
			}
		}
		recorders, err := cmd.NewRecorderFactory(opts.CaptureRecorder, time.Duration(opts.CaptureTimesliceMs)*time.Millisecond, opts.CaptureFfmpegPath, mic)
		if err != nil {
			logger.Error("Invalid recorder", "error", err)
			os.Exit(1)
		}

		// Album backend
		var (
			session  *album.Session
			library  *album.Library
			uploader *album.Uploader
		)
		if opts.AlbumURL != "" {
			timeout := opts.AlbumTimeout
			if timeout <= 0 {
				logger.Warn("Invalid album timeout, using default", "timeout", timeout, "default", defaultAlbumTimeout)
				timeout = defaultAlbumTimeout
			}
			client := album.NewClient(opts.AlbumURL, timeout)
			if opts.AlbumToken != "" {
				client.SetToken(opts.AlbumToken)
			}
			session = album.NewSession(client)
			library = album.NewLibrary(client)
			uploader = album.NewUploader(library, album.UploaderOptions{
				TargetAlbum: opts.AlbumTargetAlbum,
				Publisher:   eventBus,
			})
		} else {
			logger.Info("No album backend configured, captures are not uploaded")
		}

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		controller := capture.New(capture.Options{
			Source:        source,
			Recorders:     recorders,
			Constraints:   cmd.Constraints(opts.CaptureWidth, opts.CaptureHeight, opts.CaptureAudio),
			JPEGQuality:   opts.CaptureJPEGQuality,
			DisposePolicy: capture.ParseDisposePolicy(opts.CaptureDisposeRecording),
			OnStateChange: func(st capture.Status) {
				eventBus.Publish(events.CaptureState(st))
				notifier.Status(statusLine(st))
			},
			OnPhotoCaptured: func(r capture.Result) {
				eventBus.Publish(events.PhotoCaptured(r))
				if uploader != nil {
					uploader.OnPhotoCaptured(r)
				}
			},
			OnVideoCaptured: func(r capture.Result) {
				eventBus.Publish(events.VideoCaptured(r))
				if uploader != nil {
					uploader.OnVideoCaptured(r)
				}
			},
			OnError: func(deviceID string, err error) {
				eventBus.Publish(events.CaptureError(deviceID, err))
			},
		})

		registry := devices.NewRegistry(source,
			devices.WithDescriber(devices.NewDescriber()),
			devices.WithPublisher(eventBus),
		)

		// Follow the selected device once the controller holds a camera.
		follower := capture.NewFollower(controller, func() (string, bool) {
			d, ok := registry.Selected()
			return d.ID, ok
		})
		registry.Subscribe(func(sel devices.Selection) {
			logger.Debug("Device selected", "device_id", sel.Device.ID, "previous", sel.Previous)
			follower.Notify()
		})

		apiOpts := &api.Options{
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			Controller:     controller,
			Registry:       registry,
			Session:        session,
			Library:        library,
			EventBus:       eventBus,
			PreviewFPS:     opts.CapturePreviewFPS,
			CORSOrigins:    strings.Split(opts.CORSOrigins, ","),
			PreviewQuality: opts.CapturePreviewQuality,
		}
		if opts.ObsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.ObsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		var ledManager *led.Manager
		if opts.FeaturesLEDControl {
			ledLogger := logging.GetLogger("led")
			ledCtrl := led.New(ledLogger)
			if name := led.PreferredLED(ledCtrl); name != "" {
				ledManager = led.NewManager(ledCtrl, name, eventBus, ledLogger)
			} else {
				ledLogger.Info("No LED available for capture indication")
			}
		}

		var watchers []interface {
			Start() error
			Stop() error
		}
		if _, statErr := os.Stat(opts.Config); statErr == nil {
			configLogger := logging.GetLogger("config")
			preview := config.PreviewSettings{FPS: opts.CapturePreviewFPS, Quality: opts.CapturePreviewQuality}
			watchers = append(watchers,
				config.NewLoggingWatcher(opts.Config, loggingConfig, configLogger, 0),
				config.NewPreviewWatcher(opts.Config, preview, func(p config.PreviewSettings) {
					server.SetPreview(p.FPS, p.Quality)
				}, configLogger, 0),
			)
		}

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			go follower.Run(ctx)
			if _, refreshErr := registry.Refresh(ctx); refreshErr != nil {
				logger.Warn("Failed to enumerate devices", "error", refreshErr)
			}
			if opts.DevicesHotplug {
				go func() {
					if watchErr := registry.Watch(ctx); watchErr != nil && !errors.Is(watchErr, context.Canceled) {
						logger.Warn("Hotplug monitoring unavailable", "error", watchErr)
					}
				}()
			}

			if sseExporter != nil {
				sseExporter.Start(ctx)
			}
			if ledManager != nil {
				ledManager.Start()
			}
			for i, w := range watchers {
				if startErr := w.Start(); startErr != nil {
					logger.Warn("Failed to watch config file", "error", startErr)
					watchers = watchers[:i]
					break
				}
			}

			if session != nil {
				signIn(ctx, logger, session, library, opts.AlbumEmail, opts.AlbumPassword)
				uploader.Start(ctx)
			}

			if opts.CaptureAutoAcquire {
				if dev, ok := registry.Selected(); ok {
					st := controller.Acquire(ctx, dev.ID)
					logger.Info("Camera acquired at startup", "device_id", dev.ID, "state", st.State)
					// Catch a selection made while the camera was opening.
					follower.Notify()
				} else {
					logger.Warn("No camera to acquire at startup")
				}
			}

			notifier.Ready()
			notifier.StartWatchdog(ctx)

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if stopErr := server.Stop(stopCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Release the camera after the API stops taking requests; a
			// recording in progress is handled by the dispose policy.
			controller.Dispose()

			// Drain queued uploads, including one emitted by Dispose
			if uploader != nil {
				uploader.Stop()
			}
			if ledManager != nil {
				ledManager.Stop()
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			for _, w := range watchers {
				_ = w.Stop()
			}
			cancel()
		})
	})

	cli.Root().Use = "camalbum"
	cli.Root().Short = "Camera capture service with album upload"

	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateSnapshotCmd())
	cli.Root().AddCommand(cmd.CreateRecordCmd())

	// Run the CLI
	cli.Run()
}

// signIn restores the album session from the configured credentials.
func signIn(ctx context.Context, logger *slog.Logger, session *album.Session, library *album.Library, email, password string) {
	if email != "" && password != "" {
		if _, err := session.Login(ctx, email, password); err != nil {
			logger.Warn("Album backend sign in failed", "email", email, "error", err)
			return
		}
	}
	if !session.Authenticated() {
		logger.Info("Not signed in to the album backend; sign in through the API to upload")
		return
	}
	if err := library.Refresh(ctx); err != nil {
		logger.Warn("Failed to load albums", "error", err)
	}
}

func statusLine(st capture.Status) string {
	switch st.State {
	case capture.StateIdle:
		return "idle"
	case capture.StateError:
		return fmt.Sprintf("error on %s: %s", st.DeviceID, st.ErrorMessage)
	default:
		return fmt.Sprintf("%s on %s (%dx%d)", st.State, st.DeviceID, st.Width, st.Height)
	}
}
