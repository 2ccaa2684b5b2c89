// Package version exposes build metadata for electron-packager.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// Short and Full render the version for CLI output, UserAgent identifies
// the tool to download servers.
package version
