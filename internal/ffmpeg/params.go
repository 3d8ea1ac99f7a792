package ffmpeg

// RecordParams describes an ffmpeg invocation that reads MJPEG frames on
// stdin and writes an encoded container to stdout.
type RecordParams struct {
	// Binary is the ffmpeg executable. Empty means "ffmpeg" from PATH.
	Binary string

	// Input
	FPS        float64 // input frame rate of the piped frames
	Resolution string  // 1280x720, scales the output when set

	// Audio, muxed in when AudioDevice is set
	AudioDevice  string // ALSA name, e.g. hw:1,0
	AudioEncoder string // libopus when empty
	AudioBitrate string // 96k, empty keeps the encoder default

	// Encoder
	Encoder  string // libvpx-vp9, libvpx, ...
	CRF      int    // 0 = not set
	Bitrate  string // 0 allows pure CRF for libvpx-vp9
	Deadline string // realtime, good
	CPUUsed  int    // libvpx speed, 0 = not set
	GOP      int    // keyframe interval, 0 = not set

	// Output
	Container string // webm
	Output    string // pipe:1 or a file path
}

// DefaultRecordParams returns a realtime VP9/WebM pipeline.
func DefaultRecordParams() RecordParams {
	return RecordParams{
		FPS:       15,
		Encoder:   "libvpx-vp9",
		CRF:       33,
		Bitrate:   "0",
		Deadline:  "realtime",
		CPUUsed:   8,
		GOP:       60,
		Container: "webm",
		Output:    "pipe:1",
	}
}
