// Package version reports the memex build.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const Name = "memex"

// Version, GitCommit and BuildDate are overridden with -ldflags -X at release time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "development"
)

func Info() string {
	return Version
}

// FullInfo returns the version line printed by `memex --version` and stored in dumps.
func FullInfo() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", Name, Version, GitCommit, BuildDate)
}

var (
	buildID     string
	buildIDOnce sync.Once
)

// BuildID fingerprints the running binary from its Go version, module and VCS
// settings.
func BuildID() string {
	buildIDOnce.Do(func() {
		buildID = computeBuildID(debug.ReadBuildInfo())
	})
	return buildID
}

func computeBuildID(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return Version + "-" + GitCommit
	}
	d := xxhash.New()
	_, _ = d.WriteString(info.GoVersion)
	_, _ = d.WriteString(info.Main.Path)
	_, _ = d.WriteString(info.Main.Version)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision", "vcs.modified", "vcs.time":
			_, _ = d.WriteString(s.Key)
			_, _ = d.WriteString(s.Value)
		}
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
