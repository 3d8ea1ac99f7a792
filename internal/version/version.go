// Package version holds build metadata injected with -ldflags.
package version

import (
	"runtime"
)

// Set with -ldflags "-X github.com/smazurov/camalbum/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata served by /api/version.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the version.
func String() string {
	return Version
}

// UserAgent identifies camalbum to the album backend.
func UserAgent() string {
	return "camalbum/" + Version + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}
