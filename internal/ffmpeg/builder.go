package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// Base returns the ffmpeg command with standard flags. Log lines carry a
// level prefix so ParseLogLevel can route them.
func Base(binary string) string {
	if binary == "" {
		binary = "ffmpeg"
	}
	return binary + " -hide_banner -nostdin -loglevel level+info"
}

// BuildRecordCommand builds an FFmpeg command from structured parameters.
func BuildRecordCommand(p *RecordParams) (string, error) {
	if p.Encoder == "" {
		return "", fmt.Errorf("encoder is required")
	}
	if p.Container == "" {
		return "", fmt.Errorf("container is required")
	}
	if p.FPS <= 0 {
		return "", fmt.Errorf("input frame rate must be positive")
	}

	var cmd strings.Builder

	// -nostdin only stops interactive key handling, pipe:0 still works
	cmd.WriteString(Base(p.Binary))

	// Input: concatenated JPEG frames on stdin, timestamps from arrival
	cmd.WriteString(" -f mjpeg")
	cmd.WriteString(" -use_wallclock_as_timestamps 1")
	cmd.WriteString(" -framerate " + strconv.FormatFloat(p.FPS, 'f', -1, 64))
	cmd.WriteString(" -i pipe:0")

	if p.AudioDevice != "" {
		// The ALSA input blocks while video is read, so give it a queue
		cmd.WriteString(" -f alsa -thread_queue_size 1024 -i " + p.AudioDevice)
	}

	if p.Resolution != "" {
		w, h, ok := strings.Cut(p.Resolution, "x")
		if !ok {
			return "", fmt.Errorf("invalid resolution %q", p.Resolution)
		}
		cmd.WriteString(fmt.Sprintf(" -vf scale=%s:%s", w, h))
	}

	cmd.WriteString(" -c:v " + p.Encoder)
	if p.CRF > 0 {
		cmd.WriteString(fmt.Sprintf(" -crf %d", p.CRF))
	}
	if p.Bitrate != "" {
		cmd.WriteString(" -b:v " + p.Bitrate)
	}
	if p.Deadline != "" && isLibvpx(p.Encoder) {
		cmd.WriteString(" -deadline " + p.Deadline)
	}
	if p.CPUUsed > 0 && isLibvpx(p.Encoder) {
		cmd.WriteString(fmt.Sprintf(" -cpu-used %d", p.CPUUsed))
	}
	if p.GOP > 0 {
		cmd.WriteString(fmt.Sprintf(" -g %d", p.GOP))
	}

	if p.AudioDevice != "" {
		cmd.WriteString(" -c:a " + audioEncoder(p))
		if p.AudioBitrate != "" {
			cmd.WriteString(" -b:a " + p.AudioBitrate)
		}
		cmd.WriteString(" -shortest")
	}

	// Streamable output: no seeking back to write cues
	if p.Container == "webm" {
		cmd.WriteString(" -cluster_time_limit 1000 -live 1")
	}
	cmd.WriteString(" -f " + p.Container)

	out := p.Output
	if out == "" {
		out = "pipe:1"
	}
	cmd.WriteString(" " + out)

	return cmd.String(), nil
}

// MimeType returns the MIME type of a recording built from p.
func MimeType(p *RecordParams) string {
	codec := ""
	switch p.Encoder {
	case "libvpx-vp9":
		codec = "vp9"
	case "libvpx":
		codec = "vp8"
	case "libx264":
		codec = "avc1"
	}
	base := "video/" + p.Container
	if p.Container == "matroska" {
		base = "video/x-matroska"
	}
	if codec == "" {
		return base
	}
	if p.AudioDevice != "" {
		switch audioEncoder(p) {
		case "libopus":
			codec += ",opus"
		case "libvorbis":
			codec += ",vorbis"
		case "aac":
			codec += ",mp4a.40.2"
		}
	}
	return base + ";codecs=" + codec
}

func audioEncoder(p *RecordParams) string {
	if p.AudioEncoder == "" {
		return "libopus"
	}
	return p.AudioEncoder
}

func isLibvpx(encoder string) bool {
	return strings.HasPrefix(encoder, "libvpx")
}
