package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/camalbum/internal/album"
	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/logging"
)

// progressInterval is how often record reports the chunk count.
const progressInterval = time.Second

// CreateRecordCmd creates the record command.
func CreateRecordCmd() *cobra.Command {
	var sourceKind, deviceID, output, recorder, ffmpegPath, audioDevice string
	var width, height int
	var duration, timeslice time.Duration
	var audio bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a video",
		Long: `Acquires a camera and records until the duration elapses or the command is interrupted. ` +
			`The chunks are concatenated in order and written to a file.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("main")

			src, err := NewSource(sourceKind)
			if err != nil {
				logger.Error("Invalid capture source", "error", err)
				os.Exit(1)
			}
			mic := ""
			if audio && recorder == RecorderWebM {
				if mic, err = ResolveAudioInput(audioDevice); err != nil {
					logger.Warn("Recording without ALSA audio", "error", err)
				}
			}
			recorders, err := NewRecorderFactory(recorder, timeslice, ffmpegPath, mic)
			if err != nil {
				logger.Error("Invalid recorder", "error", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, path, err := record(ctx, captureConfig{
				Source:      src,
				Recorders:   recorders,
				DeviceID:    deviceID,
				Constraints: Constraints(width, height, audio),
				Output:      output,
			}, duration)
			if err != nil {
				logger.Error("Recording failed", "error", err)
				os.Exit(1)
			}
			logger.Info("Recording saved",
				"path", path,
				"mime_type", r.MimeType,
				"duration", r.Duration.Round(time.Millisecond),
				"chunks", r.Chunks,
				"bytes", len(r.Data),
				"interrupted", r.Interrupted)
		},
	}

	cmd.Flags().StringVar(&sourceKind, "source", SourceCamera, "Capture source (camera, testsrc)")
	cmd.Flags().StringVarP(&deviceID, "device", "d", "", "Device id, defaults to the first camera")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, defaults to a timestamped name")
	cmd.Flags().StringVar(&recorder, "recorder", RecorderMJPEG, "Recorder (mjpeg, webm)")
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "ffmpeg executable for the webm recorder")
	cmd.Flags().IntVar(&width, "width", 1280, "Ideal width")
	cmd.Flags().IntVar(&height, "height", 720, "Ideal height")
	cmd.Flags().BoolVar(&audio, "audio", false, "Request an audio track")
	cmd.Flags().StringVar(&audioDevice, "audio-device", "", "ALSA capture device for the webm recorder, defaults to the first microphone")
	cmd.Flags().DurationVarP(&duration, "duration", "t", 10*time.Second, "Recording length, 0 records until interrupted")
	cmd.Flags().DurationVar(&timeslice, "timeslice", time.Second, "Chunk interval")

	return cmd
}

// record captures one video. It stops after duration, when ctx is cancelled,
// or when the device goes away, and keeps whatever was recorded.
func record(ctx context.Context, cfg captureConfig, duration time.Duration) (capture.Result, string, error) {
	emitted := make(chan capture.Result, 1)
	ctrl, err := acquire(ctx, cfg, capture.Options{
		DisposePolicy: capture.DisposeEmit,
		OnVideoCaptured: func(r capture.Result) {
			select {
			case emitted <- r:
			default:
			}
		},
	})
	if err != nil {
		return capture.Result{}, "", err
	}
	defer ctrl.Dispose()

	logger := logging.GetLogger("main")
	if err := ctrl.StartRecording(ctx); err != nil {
		return capture.Result{}, "", err
	}
	logger.Info("Recording started", "device_id", ctrl.Status().DeviceID, "mime_type", ctrl.Status().RecordingMime)

	var result capture.Result
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		var timeout <-chan time.Time
		if duration > 0 {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			timeout = timer.C
		}

		select {
		case r := <-emitted:
			// Device lost or recorder stopped on its own
			result = r
			return nil
		case <-timeout:
		case <-gctx.Done():
		}

		r, err := ctrl.StopRecording(context.WithoutCancel(ctx))
		if err != nil {
			select {
			case r = <-emitted:
			default:
				return fmt.Errorf("stop recording: %w", err)
			}
		}
		result = r
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				st := ctrl.Status()
				if st.State == capture.StateRecording {
					logger.Info("Recording", "elapsed", time.Since(st.RecordingSince).Round(time.Second), "chunks", st.Chunks)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return capture.Result{}, "", err
	}

	path := cfg.Output
	if path == "" {
		path = album.FileName(result)
	}
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return capture.Result{}, "", fmt.Errorf("write recording: %w", err)
	}
	return result, path, nil
}
