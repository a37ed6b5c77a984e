// Package version exposes build metadata for the eyes binaries.
//
// Version, Commit and BuildTime are injected via ldflags; when they are not,
// the VCS stamp recorded by the Go toolchain is used instead.
package version
