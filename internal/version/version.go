package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

const shortCommitLength = 7

var stampOnce sync.Once

// stamp fills Commit and BuildTime from the toolchain VCS info when ldflags left them unset.
func stamp() {
	stampOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "none" && s.Value != "" {
					Commit = s.Value[:min(len(s.Value), shortCommitLength)]
				}
			case "vcs.time":
				if BuildTime == "unknown" && s.Value != "" {
					BuildTime = s.Value
				}
			}
		}
	})
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the binary name with version, commit and build time.
func Full(binary string) string {
	stamp()

	return fmt.Sprintf("%s %s (commit: %s, built at: %s)", binary, Version, Commit, BuildTime)
}

// KV returns the build metadata as logger key/value pairs.
func KV() []any {
	stamp()

	return []any{"version", Version, "commit", Commit, "build_time", BuildTime}
}
