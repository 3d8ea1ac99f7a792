package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/camalbum/internal/album"
	"github.com/smazurov/camalbum/internal/capture"
	"github.com/smazurov/camalbum/internal/devices"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/media"
)

// captureConfig is shared by the snapshot and record commands.
type captureConfig struct {
	Source      media.Source
	Recorders   media.RecorderFactory
	DeviceID    string
	Constraints media.Constraints
	JPEGQuality int
	Output      string
}

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var sourceKind, deviceID, output string
	var width, height, quality int

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take one photo",
		Long:  `Acquires a camera, captures a single JPEG photo and writes it to a file.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("main")

			src, err := NewSource(sourceKind)
			if err != nil {
				logger.Error("Invalid capture source", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			r, path, err := takeSnapshot(ctx, captureConfig{
				Source:      src,
				DeviceID:    deviceID,
				Constraints: Constraints(width, height, false),
				JPEGQuality: quality,
				Output:      output,
			})
			if err != nil {
				logger.Error("Snapshot failed", "error", err)
				os.Exit(1)
			}
			logger.Info("Photo saved", "path", path, "device_id", r.DeviceID, "width", r.Width, "height", r.Height, "bytes", len(r.Data))
		},
	}

	cmd.Flags().StringVar(&sourceKind, "source", SourceCamera, "Capture source (camera, testsrc)")
	cmd.Flags().StringVarP(&deviceID, "device", "d", "", "Device id, defaults to the first camera")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, defaults to a timestamped name")
	cmd.Flags().IntVar(&width, "width", 1280, "Ideal width")
	cmd.Flags().IntVar(&height, "height", 720, "Ideal height")
	cmd.Flags().IntVarP(&quality, "quality", "q", media.DefaultJPEGQuality, "JPEG quality (1-100)")

	return cmd
}

// resolveDevice returns id, or the first camera of src when id is empty.
func resolveDevice(ctx context.Context, src media.Source, id string) (string, error) {
	registry := devices.NewRegistry(src)
	if _, err := registry.Refresh(ctx); err != nil {
		return "", err
	}
	if id == "" {
		d, ok := registry.Selected()
		if !ok {
			return "", media.NewError(media.CodeDeviceUnavailable, "no camera found", nil)
		}
		return d.ID, nil
	}
	if _, ok := registry.Get(id); !ok {
		return "", fmt.Errorf("%w: %s", devices.ErrUnknownDevice, id)
	}
	return id, nil
}

// acquire opens the configured device and returns a controller in the ready
// state. The caller disposes it.
func acquire(ctx context.Context, cfg captureConfig, opts capture.Options) (*capture.Controller, error) {
	id, err := resolveDevice(ctx, cfg.Source, cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	opts.Source = cfg.Source
	opts.Recorders = cfg.Recorders
	opts.Constraints = cfg.Constraints
	opts.JPEGQuality = cfg.JPEGQuality
	ctrl := capture.New(opts)

	if st := ctrl.Acquire(ctx, id); st.State != capture.StateReady {
		ctrl.Dispose()
		if lastErr := ctrl.LastError(); lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("acquire %s: controller is %s", id, st.State)
	}
	return ctrl, nil
}

func takeSnapshot(ctx context.Context, cfg captureConfig) (capture.Result, string, error) {
	ctrl, err := acquire(ctx, cfg, capture.Options{})
	if err != nil {
		return capture.Result{}, "", err
	}
	defer ctrl.Dispose()

	r, err := ctrl.CapturePhoto(ctx)
	if err != nil {
		return capture.Result{}, "", err
	}

	path := cfg.Output
	if path == "" {
		path = album.FileName(r)
	}
	if err := os.WriteFile(path, r.Data, 0o644); err != nil {
		return capture.Result{}, "", fmt.Errorf("write photo: %w", err)
	}
	return r, path, nil
}
