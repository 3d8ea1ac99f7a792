package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality matches the 0.95 quality browsers use for canvas snapshots.
const DefaultJPEGQuality = 95

// MimeJPEG is the MIME type of photo captures.
const MimeJPEG = "image/jpeg"

// EncodeJPEG encodes img at its native bounds. Quality outside 1..100 falls
// back to DefaultJPEGQuality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode jpeg: nil frame")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Snapshot reads one frame from s and encodes it as JPEG.
func Snapshot(s Stream, quality int) ([]byte, image.Rectangle, error) {
	reader, err := s.NewFrameReader()
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("open frame reader: %w", err)
	}
	if c, ok := reader.(interface{ Close() error }); ok {
		defer c.Close()
	}

	img, release, err := reader.Read()
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("read frame: %w", err)
	}
	if release != nil {
		defer release()
	}

	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return data, img.Bounds(), nil
}
