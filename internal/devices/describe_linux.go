//go:build linux

package devices

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/pkg/linuxav/v4l2"
)

// V4L2Describer matches source devices to V4L2 nodes.
type V4L2Describer struct {
	find     func() ([]v4l2.DeviceInfo, error)
	byPath   string
	maxSizes int
}

// NewDescriber returns the V4L2 describer.
func NewDescriber() Describer {
	return &V4L2Describer{find: v4l2.FindDevices, byPath: "/dev/v4l/by-path", maxSizes: 8}
}

// Describe implements Describer. Camera labels carry the node or a by-path
// name, optionally joined with ';'.
func (v *V4L2Describer) Describe(d media.DeviceInfo) (Details, bool) {
	nodes, err := v.find()
	if err != nil || len(nodes) == 0 {
		return Details{}, false
	}

	for _, part := range strings.Split(d.Label, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := filepath.Base(part)
		if target, err := filepath.EvalSymlinks(filepath.Join(v.byPath, name)); err == nil {
			name = filepath.Base(target)
		}
		for _, n := range nodes {
			if filepath.Base(n.DevicePath) == name || n.DeviceID == part || n.DeviceName == d.Label {
				return Details{
					Path:         n.DevicePath,
					StableID:     n.DeviceID,
					Driver:       n.Driver,
					Capabilities: v4l2.CapabilityNames(n.Caps),
				}, true
			}
		}
	}
	return Details{}, false
}

// Formats implements Describer.
func (v *V4L2Describer) Formats(path string) ([]models.FormatInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	formats, err := v4l2.GetFormats(path)
	if err != nil {
		return nil, err
	}

	out := make([]models.FormatInfo, 0, len(formats))
	for _, f := range formats {
		fi := models.FormatInfo{
			FormatName:   v4l2.ShortName(f.PixelFormat),
			OriginalName: f.FormatName,
			Emulated:     f.Emulated,
		}
		sizes, err := v4l2.GetResolutions(path, f.PixelFormat)
		if err == nil {
			for i, s := range sizes {
				r := models.Resolution{Width: s.Width, Height: s.Height}
				// Frame intervals cost one ioctl each; only the first sizes get them.
				if i < v.maxSizes {
					if rates, err := v4l2.GetFramerates(path, f.PixelFormat, s.Width, s.Height); err == nil {
						for _, fr := range rates {
							r.FPS = append(r.FPS, fr.FPS())
						}
					}
				}
				fi.Resolutions = append(fi.Resolutions, r)
			}
		}
		out = append(out, fi)
	}
	return out, nil
}
