package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags, e.g. -X github.com/ludo-technologies/simrec/internal/version.Version=v0.2.0
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
	BuiltBy = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	BuiltBy   string `json:"built_by" yaml:"built_by"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build information of the running binary.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		BuiltBy:   BuiltBy,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info returns multi-line version information.
func Info() string {
	b := Get()
	return fmt.Sprintf(
		"simrec %s\nCommit: %s\nBuilt: %s by %s\nGo: %s\nOS/Arch: %s",
		b.Version, b.Commit, b.Date, b.BuiltBy, b.GoVersion, b.Platform,
	)
}

// Short returns the version string alone.
func Short() string {
	return Version
}
