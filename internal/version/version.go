// Package version exposes the build metadata of the powerled binary.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with
//
//	-ldflags "-X github.com/smazurov/powerled/internal/version.Version=1.2.0 -X ...GitCommit=abc1234"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata together with the Go runtime it was built for.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the version with its commit, e.g. "1.2.0 (abc1234)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
