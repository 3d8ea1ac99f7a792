package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/devices"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/media"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var sourceKind string
	var asJSON bool
	var withFormats bool
	var microphones bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List cameras",
		Long: `Enumerates the video inputs of the capture source, with V4L2 details and supported formats when available. ` +
			`With --audio, lists the ALSA microphones the webm recorder can use instead.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("main")

			if microphones {
				if err := listMicrophones(cmd.OutOrStdout(), asJSON); err != nil {
					logger.Error("Failed to list microphones", "error", err)
					os.Exit(1)
				}
				return
			}

			src, err := NewSource(sourceKind)
			if err != nil {
				logger.Error("Invalid capture source", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := listDevices(ctx, src, devices.NewDescriber(), cmd.OutOrStdout(), asJSON, withFormats); err != nil {
				logger.Error("Failed to list devices", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&sourceKind, "source", SourceCamera, "Capture source (camera, testsrc)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&withFormats, "formats", false, "Include supported formats")
	cmd.Flags().BoolVar(&microphones, "audio", false, "List ALSA microphones instead of cameras")

	return cmd
}

type deviceListing struct {
	models.DeviceInfo
	Formats []models.FormatInfo `json:"formats,omitempty"`
}

func listDevices(ctx context.Context, src media.Source, describer devices.Describer, w io.Writer, asJSON, withFormats bool) error {
	registry := devices.NewRegistry(src, devices.WithDescriber(describer))
	list, err := registry.Refresh(ctx)
	if err != nil {
		return err
	}

	out := make([]deviceListing, 0, len(list))
	for _, d := range list {
		entry := deviceListing{DeviceInfo: registry.ToAPI(d)}
		if withFormats && d.Path != "" {
			if formats, fmtErr := registry.Formats(d.ID); fmtErr == nil {
				entry.Formats = formats
			}
		}
		out = append(out, entry)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out) == 0 {
		_, err := fmt.Fprintln(w, "No cameras found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tLABEL\tPATH\tDRIVER")
	for _, d := range out {
		mark := ""
		if d.Selected {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, d.DeviceID, d.Label, orDash(d.DevicePath), orDash(d.Driver))
		for _, f := range d.Formats {
			sizes := make([]string, 0, len(f.Resolutions))
			for _, r := range f.Resolutions {
				sizes = append(sizes, fmt.Sprintf("%dx%d", r.Width, r.Height))
			}
			fmt.Fprintf(tw, "\t\t  %s\t%s\t\n", f.FormatName, strings.Join(sizes, " "))
		}
	}
	return tw.Flush()
}

func listMicrophones(w io.Writer, asJSON bool) error {
	inputs, err := listAudioInputs()
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inputs)
	}
	if len(inputs) == 0 {
		_, err := fmt.Fprintln(w, "No microphones found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tNAME\tCARD")
	for _, in := range inputs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", in.Device, orDash(in.Name), orDash(in.Card))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
