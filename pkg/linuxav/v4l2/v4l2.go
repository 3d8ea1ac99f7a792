//go:build linux

// Package v4l2 queries Video4Linux2 capture devices without cgo.
//
// It covers what a camera picker needs: finding capture nodes with a
// stable identifier, and listing the pixel formats, frame sizes and frame
// intervals each node advertises.
//
//	devices, _ := v4l2.FindDevices()
//	for _, d := range devices {
//	    formats, _ := v4l2.GetFormats(d.DevicePath)
//	    for _, f := range formats {
//	        sizes, _ := v4l2.GetResolutions(d.DevicePath, f.PixelFormat)
//	        _ = sizes
//	    }
//	}
//
// Stable identifiers come from /dev/v4l/by-id symlinks. Devices without one
// get a synthetic id built from the bus info and the node index.
package v4l2
