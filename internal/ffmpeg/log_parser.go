package ffmpeg

import "strings"

var logLevels = map[string]bool{
	"quiet": true, "panic": true, "fatal": true, "error": true, "warning": true,
	"info": true, "verbose": true, "debug": true, "trace": true,
}

// ParseLogLevel splits a line printed under "-loglevel level+info" into its
// level and message. Component tags like "[libvpx-vp9 @ 0x55d0]" stay in
// the message; only the level tag is removed. Untagged lines are info.
func ParseLogLevel(line string) (level, msg string) {
	rest := line
	consumed := 0
	for strings.HasPrefix(rest, "[") {
		tag, after, ok := strings.Cut(rest[1:], "] ")
		if !ok {
			break
		}
		if logLevels[tag] {
			return tag, line[:consumed] + after
		}
		n := len(tag) + 3
		consumed += n
		rest = rest[n:]
	}
	return "info", line
}
